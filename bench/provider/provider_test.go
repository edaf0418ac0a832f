package provider

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/songquanpeng/visionbench/common/config"
)

func TestResolve(t *testing.T) {
	Convey("resolve provider families", t, func() {
		Convey("bedrock prefix matches any suffix", func() {
			for _, name := range []string{"bedrock", "bedrock_claude", "bedrock_nova", "bedrock_llama"} {
				resolved, ok := Resolve(name, "some-model")
				So(ok, ShouldBeTrue)
				So(resolved.Family, ShouldEqual, FamilyBedrock)
				So(resolved.Name, ShouldEqual, name)
			}
		})

		Convey("exact vendor names", func() {
			resolved, ok := Resolve("openai", "gpt-4o")
			So(ok, ShouldBeTrue)
			So(resolved.Family, ShouldEqual, FamilyOpenAI)
			So(resolved.Model, ShouldEqual, "gpt-4o")

			resolved, ok = Resolve("gemini", "gemini-2.0-flash")
			So(ok, ShouldBeTrue)
			So(resolved.Family, ShouldEqual, FamilyGemini)
		})

		Convey("unrecognized names are rejected", func() {
			for _, name := range []string{"anthropic", "azure", "openai2", ""} {
				_, ok := Resolve(name, "model")
				So(ok, ShouldBeFalse)
			}
		})

		Convey("every family has a name", func() {
			for f := FamilyOpenAI; f < FamilyDummy; f++ {
				So(f.String(), ShouldNotEqual, "unknown")
			}
		})
	})
}

func TestHasCredentials(t *testing.T) {
	Convey("credential gating", t, func() {
		prevOpenAI, prevGemini := config.OpenAIAPIKey, config.GeminiAPIKey
		prevAK, prevSK := config.AWSAccessKeyID, config.AWSSecretAccessKey
		defer func() {
			config.OpenAIAPIKey, config.GeminiAPIKey = prevOpenAI, prevGemini
			config.AWSAccessKeyID, config.AWSSecretAccessKey = prevAK, prevSK
		}()

		config.OpenAIAPIKey = ""
		config.GeminiAPIKey = "gm-test"
		config.AWSAccessKeyID = "AKIATEST"
		config.AWSSecretAccessKey = ""

		openai, _ := Resolve("openai", "gpt-4o")
		So(openai.HasCredentials(), ShouldBeFalse)

		gemini, _ := Resolve("gemini", "gemini-2.0-flash")
		So(gemini.HasCredentials(), ShouldBeTrue)

		Convey("bedrock needs both halves of the key pair", func() {
			bedrock, _ := Resolve("bedrock_claude", "anthropic.claude-3")
			So(bedrock.HasCredentials(), ShouldBeFalse)

			config.AWSSecretAccessKey = "secret"
			So(bedrock.HasCredentials(), ShouldBeTrue)
		})
	})
}
