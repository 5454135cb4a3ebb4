package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nostrsync/negentropy"
)

var decodeJSON bool

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "emit machine readable output")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex-message>",
	Short: "decode a hex negentropy message and print its ranges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := negentropy.DecodeHexMessage(args[0])
		if err != nil {
			return err
		}
		if decodeJSON {
			return printMessageJSON(cmd.OutOrStdout(), msg)
		}
		printMessage(cmd.OutOrStdout(), msg)
		return nil
	},
}

func printMessage(w io.Writer, msg *negentropy.Message) {
	for i := range msg.Ranges {
		r := &msg.Ranges[i]
		fmt.Fprintf(w, "%3d  %-11s  upper=%s", i, r.Mode, r.UpperBound)
		switch r.Mode {
		case negentropy.ModeFingerprint:
			fmt.Fprintf(w, "  fingerprint=%s", r.Fingerprint)
		case negentropy.ModeIDList:
			fmt.Fprintf(w, "  ids=%d", len(r.IDs))
		}
		fmt.Fprintln(w)
		for _, id := range r.IDs {
			fmt.Fprintf(w, "       %s\n", id)
		}
	}
	fmt.Fprintf(w, "%d ranges, complete=%v\n", len(msg.Ranges), msg.IsComplete())
}

type rangeDTO struct {
	Upper       string   `json:"upper"`
	Mode        string   `json:"mode"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	IDs         []string `json:"ids,omitempty"`
}

func printMessageJSON(w io.Writer, msg *negentropy.Message) error {
	out := struct {
		Ranges   []rangeDTO `json:"ranges"`
		Complete bool       `json:"complete"`
	}{
		Ranges:   make([]rangeDTO, 0, len(msg.Ranges)),
		Complete: msg.IsComplete(),
	}
	for i := range msg.Ranges {
		r := &msg.Ranges[i]
		dto := rangeDTO{Upper: r.UpperBound.String(), Mode: r.Mode.String()}
		switch r.Mode {
		case negentropy.ModeFingerprint:
			dto.Fingerprint = r.Fingerprint.String()
		case negentropy.ModeIDList:
			dto.IDs = make([]string, len(r.IDs))
			for j, id := range r.IDs {
				dto.IDs[j] = id.String()
			}
		}
		out.Ranges = append(out.Ranges, dto)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
