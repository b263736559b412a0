// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"testgen-service/pkg/config"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "testgen cli %s\n", version)
	case "health":
		return runHealth(stdout, stderr)
	case "config":
		return runConfig(stdout, stderr)
	case "generate":
		return runGenerate(rest, stdout, stderr)
	default:
		printUsage(stderr)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: testgen <command> [args]")
	fmt.Fprintln(w, "  version                              - 显示版本")
	fmt.Fprintln(w, "  health                               - 检查 API 服务（TESTGEN_API_URL）")
	fmt.Fprintln(w, "  config                               - 显示配置概要")
	fmt.Fprintln(w, "  generate [-context text] img [img...] - 上传截图并输出测试用例")
}

func runHealth(stdout, stderr io.Writer) int {
	out, err := getHealth(apiBaseURL())
	if err != nil {
		fmt.Fprintf(stderr, "health: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, prettyJSON(out))
	return 0
}

func runConfig(stdout, stderr io.Writer) int {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "api.port=%d\n", cfg.API.Port)
	fmt.Fprintf(stdout, "api.host=%s\n", cfg.API.Host)
	fmt.Fprintf(stdout, "model.caption=%s %s\n", cfg.Model.Caption.Provider, cfg.Model.Caption.Model)
	fmt.Fprintf(stdout, "model.generation=%s %s\n", cfg.Model.Generation.Provider, cfg.Model.Generation.Model)
	fmt.Fprintf(stdout, "storage.upload=%s\n", cfg.Storage.Upload.Type)
	fmt.Fprintf(stdout, "storage.cache=%s\n", cfg.Storage.Cache.Type)
	fmt.Fprintf(stdout, "storage.audit=%s\n", cfg.Storage.Audit.Type)
	fmt.Fprintf(stdout, "secrets.provider=%s\n", cfg.Secrets.Provider)
	return 0
}

func runGenerate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	contextText := fs.String("context", "", "附加上下文")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Usage: testgen generate [-context text] img [img...]")
		return 1
	}
	text, err := generateTestInstructions(apiBaseURL(), fs.Args(), *contextText)
	if err != nil {
		fmt.Fprintf(stderr, "generate: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, text)
	return 0
}
