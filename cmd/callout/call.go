package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starwalkn/callout"
	"github.com/starwalkn/callout/internal/logger"
)

var (
	callMethod  string
	callHeaders []string
	callData    string
	callAuth    string
)

var callCmd = &cobra.Command{
	Use:          "call [url]",
	Short:        "Invoke an endpoint once and print the terminal outcome",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, args []string) error {
		return runCall(args[0])
	},
}

func init() {
	callCmd.Flags().StringVarP(&callMethod, "method", "X", "GET", "HTTP method")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "request header in 'Key: Value' form")
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "request body")
	callCmd.Flags().StringVar(&callAuth, "auth", "", "auth config as JSON: {\"type\": ..., \"properties\": {...}}")

	rootCmd.AddCommand(callCmd)
}

func runCall(target string) error {
	engineCfg := callout.DefaultEngineConfig()
	debug := false

	// The configuration file is optional for one-shot calls.
	if cfg, err := callout.LoadConfig(resolveConfigPath()); err == nil {
		engineCfg = cfg.Engine
		debug = cfg.Debug
	} else if cfgPath != "" {
		return err
	}

	headers, err := parseHeaderFlags(callHeaders)
	if err != nil {
		return err
	}

	var authCfg *callout.AuthConfig

	if callAuth != "" {
		var raw map[string]any
		if err = json.Unmarshal([]byte(callAuth), &raw); err != nil {
			return fmt.Errorf("cannot parse auth flag: %w", err)
		}

		parsed, err := callout.ParseAuthConfig(raw)
		if err != nil {
			return err
		}

		authCfg = &parsed
	}

	log := logger.New(debug)
	defer log.Sync() //nolint:errcheck // best effort on exit

	engine := callout.New(engineCfg, log)

	req := &callout.Request{
		Method:  callMethod,
		URL:     target,
		Headers: headers,
	}

	if callData != "" {
		req.Body = []byte(callData)
	}

	done := make(chan callout.Result, 1)

	engine.Invoke(context.Background(), req, authCfg, func(res callout.Result) {
		done <- res
	})

	res := <-done

	out, err := json.MarshalIndent(map[string]any{
		"outcome": res.Outcome,
		"status":  res.Status,
		"data":    res.Body,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	if res.Outcome != callout.OutcomeSuccess {
		return errors.New("invocation did not succeed")
	}

	return nil
}

func parseHeaderFlags(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))

	for _, h := range raw {
		key, value, found := strings.Cut(h, ":")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header flag %q, expected 'Key: Value'", h)
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers, nil
}
