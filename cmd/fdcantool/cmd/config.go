package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port        string         `yaml:"port"`
	Timeout     time.Duration  `yaml:"timeout"`
	BufferSize  int            `yaml:"buffer_size"`
	BufferLimit int            `yaml:"buffer_limit"`
	Debug       bool           `yaml:"debug"`
	Bridge      BridgeSettings `yaml:"bridge"`
}

type BridgeSettings struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	RxTopic  string `yaml:"rx_topic"`
	TxTopic  string `yaml:"tx_topic"`
}

// loadSettings reads the yaml file when given and lets explicit flags win
// over it.
func loadSettings(cmd *cobra.Command) (*Settings, error) {
	set := &Settings{
		Bridge: BridgeSettings{
			ClientID: "fdcantool",
			RxTopic:  "fdcanusb/rx",
			TxTopic:  "fdcanusb/tx",
		},
	}
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		if err := yaml.Unmarshal(b, set); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	}
	if cmd.Flags().Changed(flagPort) || set.Port == "" {
		set.Port, _ = cmd.Flags().GetString(flagPort)
	}
	if cmd.Flags().Changed(flagTimeout) || set.Timeout == 0 {
		set.Timeout, _ = cmd.Flags().GetDuration(flagTimeout)
	}
	if cmd.Flags().Changed(flagDebug) {
		set.Debug, _ = cmd.Flags().GetBool(flagDebug)
	}
	return set, nil
}
