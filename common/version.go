package common

// Version is overridable at build time:
//
//	go build -ldflags "-X github.com/songquanpeng/visionbench/common.Version=v1.2.3"
var Version = "v0.1.0"
