package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tilepacks.dev/internal/submission"
)

// validateCmd checks a tile export before it is uploaded
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a Ground Markers tile export",
	Long: `Checks that a file holds tile data the upload form will accept:
a JSON array of 1 to 200 tiles with integer region coordinates and an
#RRGGBBAA color. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var errInvalidTiles = errors.New("tile data rejected")

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read tiles: %w", err)
	}

	tiles, err := submission.ValidateTiles(string(data))
	if err != nil {
		logger.Debug("Validation failed", zap.String("file", args[0]), zap.Error(err))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", submission.TilesMessage(err), err)
		return errInvalidTiles
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d tiles\n", len(tiles))
	return nil
}
