package common

import (
	"flag"
	"fmt"
	"os"
)

var (
	ConfigPath   = flag.String("config", "config.yaml", "path to the benchmark configuration file")
	ImageDir     = flag.String("images", "", "override the directory scanned by multi-image test cases")
	OutputDir    = flag.String("output", "", "override the directory result documents are written to")
	PrintVersion = flag.Bool("version", false, "print version and exit")
	PrintHelp    = flag.Bool("help", false, "print help and exit")
)

func printHelp() {
	fmt.Println("VisionBench " + Version + " - vision benchmark for structured LLM output across providers.")
	fmt.Println("Usage: visionbench [--config <file>] [--images <dir>] [--output <dir>] [--version] [--help]")
}

func Init() {
	flag.Parse()

	if *PrintVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if *PrintHelp {
		printHelp()
		os.Exit(0)
	}
}
