package main

import (
	"fmt"
	"strings"

	"github.com/cosmos/btcutil/bech32"
	"github.com/spf13/cobra"

	"github.com/nostrsync/negentropy"
)

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <id>...",
	Short: "compute the range fingerprint of a set of record ids",
	Long: `Compute the order-independent range fingerprint of the given record ids.
Ids are accepted as 64 hex characters or as bech32 note ids.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]negentropy.ID, 0, len(args))
		for _, arg := range args {
			id, err := parseID(arg)
			if err != nil {
				return fmt.Errorf("parse %q: %w", arg, err)
			}
			ids = append(ids, id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), negentropy.CalculateFingerprint(ids))
		return nil
	},
}

const noteHRP = "note"

// parseID accepts a record id in hex or bech32 note form.
func parseID(s string) (negentropy.ID, error) {
	if !strings.HasPrefix(s, noteHRP+"1") {
		return negentropy.ParseHexID(s)
	}
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return negentropy.ID{}, fmt.Errorf("decode bech32: %w", err)
	}
	if hrp != noteHRP {
		return negentropy.ID{}, fmt.Errorf("unexpected bech32 prefix %q", hrp)
	}
	// bech32 carries 5-bit groups; convert back to bytes. ConvertBits pads
	// the final incomplete byte, hence the +1.
	converted, err := bech32.ConvertBits(data, 5, 8, true)
	if err != nil {
		return negentropy.ID{}, fmt.Errorf("convert bech32 bits: %w", err)
	}
	if len(converted) != negentropy.IDSize+1 {
		return negentropy.ID{}, fmt.Errorf("note id of %d bech32 groups, want 52", len(data))
	}
	return negentropy.IDFromBytes(converted[:negentropy.IDSize])
}
