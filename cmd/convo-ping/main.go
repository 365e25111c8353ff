// Command convo-ping is a thin CLI exercising the client's ambient
// surface (spec.md §6): count_tokens and list_models, not a chat
// interface. Grounded on examples/cli-chat's flag-free,
// environment-driven construction, trimmed to what a health-check
// script actually needs.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/coregen-ai/convo/pkg/client"
	"github.com/coregen-ai/convo/pkg/message"
)

// fileConfig is the optional ~/.convo/config.toml: the one piece of local
// config this CLI reads, since everything else (the API key) comes from
// the environment per client.New's own resolution order.
type fileConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

func loadFileConfig() fileConfig {
	cfg := fileConfig{Model: "claude-3-5-sonnet-20241022"}
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}
	path := filepath.Join(home, ".convo", "config.toml")
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg
	}
	return cfg
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: convo-ping <count-tokens|list-models> [text]")
		os.Exit(2)
	}

	fileCfg := loadFileConfig()
	c, cerr := client.New(client.Config{
		BaseURL: fileCfg.BaseURL,
		Timeout: 30 * time.Second,
	})
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "building client:", cerr.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "count-tokens":
		text := "hello"
		if len(os.Args) > 2 {
			text = os.Args[2]
		}
		n, err := c.CountTokens(ctx, client.CountTokensParams{
			Model:    fileCfg.Model,
			Messages: []message.MessageParam{message.NewUserText(text)},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "count-tokens:", err.Error())
			os.Exit(1)
		}
		fmt.Println(n)

	case "list-models":
		list, err := c.ListModels(ctx, client.ListModelsOptions{Limit: 20})
		if err != nil {
			fmt.Fprintln(os.Stderr, "list-models:", err.Error())
			os.Exit(1)
		}
		for _, m := range list.Data {
			fmt.Printf("%s\t%s\n", m.ID, m.DisplayName)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(2)
	}
}
