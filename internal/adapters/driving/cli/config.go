package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change configuration",
	Long: `Reads and writes config.toml. Keys are dotted paths such as
answer.top_k or embedding.provider.

API keys are never stored here: set the variable named by
embedding.api_key_env or llm.api_key_env, or put it in a .env file.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value, or every stored value",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a configuration value",
	Long: `Stores a value. Integers, decimals and true/false are stored typed.
monitor.tickers and monitor.document_types take a comma-separated list.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and ping AI providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

// listKeys hold string arrays.
var listKeys = map[string]bool{
	"monitor.tickers":        true,
	"monitor.document_types": true,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	if len(args) == 1 {
		val, ok := configStore.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s is not set", domain.ErrNotFound, args[0])
		}
		cmd.Println(formatValue(val))
		return nil
	}

	keys := configStore.Keys()
	if len(keys) == 0 {
		cmd.Printf("No values set in %s\n", configStore.Path())
		return nil
	}
	sort.Strings(keys)
	for _, k := range keys {
		val, _ := configStore.Get(k)
		cmd.Printf("%s = %s\n", k, formatValue(val))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	key, raw := args[0], args[1]

	known, err := knownKeys()
	if err != nil {
		return err
	}
	if !known[key] && !strings.HasPrefix(key, "registry.ciks.") {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrConfig, key)
	}

	if err := configStore.Set(key, parseValue(key, raw)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("%s = %s\n", key, formatValue(parseValue(key, raw)))
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(configStore.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		cmd.Printf("  ✗ configuration: %v\n", err)
		return err
	}
	cmd.Println("  ✓ configuration")

	if svc.Check == nil {
		return nil
	}
	failed := 0
	for _, c := range svc.Check(commandContext(cmd)) {
		if c.Err != nil {
			failed++
			cmd.Printf("  ✗ %s: %v\n", c.Name, c.Err)
			continue
		}
		cmd.Printf("  ✓ %s\n", c.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d provider checks failed", failed)
	}
	return nil
}

// knownKeys lists every dotted key of the configuration schema.
func knownKeys() (map[string]bool, error) {
	data, err := toml.Marshal(domain.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	keys := make(map[string]bool)
	collectKeys(tree, "", keys)
	return keys, nil
}

func collectKeys(m map[string]any, prefix string, keys map[string]bool) {
	for k, v := range m {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			collectKeys(nested, full, keys)
			continue
		}
		keys[full] = true
	}
}

// parseValue stores numbers and booleans typed so the file round-trips
// through the config loader.
func parseValue(key, raw string) any {
	if listKeys[key] {
		items := []string{}
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
