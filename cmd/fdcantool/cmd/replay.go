package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/roffe/fdcanusb"
	"github.com/roffe/fdcanusb/pkg/bar"
	"github.com/spf13/cobra"
	"go.uber.org/ratelimit"
)

var replayRate int

func init() {
	replayCmd.Flags().IntVar(&replayRate, "fps", 100, "frames per second")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <logfile>",
	Short: "replay a frame log onto the bus",
	Long: `Replays a text log, one frame per line: <hex id> <hex payload> with an
optional trailing "ext" for 29bit identifiers. Blank lines and lines
starting with # are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lines, err := readLogfile(args[0])
		if err != nil {
			return err
		}
		fc, err := openDriver(cmd)
		if err != nil {
			return err
		}
		defer fc.Close()

		b := bar.New(len(lines), "replaying "+args[0])
		rl := ratelimit.New(replayRate)
		for _, line := range lines {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			frame, err := parseLogLine(line)
			if err != nil {
				return err
			}
			rl.Take()
			if err := fc.Send(frame); err != nil {
				return fmt.Errorf("%s: %w", line, err)
			}
			b.Add(1)
		}
		fmt.Println()
		return nil
	},
}

func readLogfile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func parseLogLine(line string) (*fdcanusb.Frame, error) {
	fields := strings.Fields(line)
	args := fields[:0:0]
	ext := false
	for _, f := range fields {
		if f == "ext" {
			ext = true
			continue
		}
		args = append(args, f)
	}
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("malformed log line %q", line)
	}
	dataStr := ""
	if len(args) == 2 {
		dataStr = args[1]
	}
	return buildFrame(args[0], dataStr, ext, fdcanusb.FlagFD)
}
