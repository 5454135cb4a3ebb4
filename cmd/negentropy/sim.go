package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nostrsync/negentropy"
)

var (
	oursPath       string
	theirsPath     string
	maxRounds      int
	frameSizeLimit int
	splitThreshold int
	simLevel       = levelFlag{zapcore.WarnLevel}
)

// levelFlag adapts a zap level to the pflag.Value interface.
type levelFlag struct{ zapcore.Level }

var _ pflag.Value = (*levelFlag)(nil)

func (levelFlag) Type() string { return "level" }

func init() {
	fs := simCmd.Flags()
	fs.StringVar(&oursPath, "ours", "", "record file for the initiating side")
	fs.StringVar(&theirsPath, "theirs", "", "record file for the responding side")
	fs.IntVar(&maxRounds, "max-rounds", 64, "abort after this many messages")
	fs.IntVar(&frameSizeLimit, "frame-size-limit", 0, "cap encoded message size in bytes, 0 to disable")
	fs.IntVar(&splitThreshold, "split-threshold", negentropy.DefaultSplitThreshold,
		"largest range answered with an id list instead of being bisected")
	fs.Var(&simLevel, "level", "log level for reconciler tracing")
	_ = simCmd.MarkFlagRequired("ours")
	_ = simCmd.MarkFlagRequired("theirs")
	rootCmd.AddCommand(simCmd)
}

var simCmd = &cobra.Command{
	Use:   "sim --ours <file> --theirs <file>",
	Short: "reconcile two record files locally and report the traffic",
	Long: `Run a full reconciliation session between two record snapshots and print
every exchanged message, the total traffic and the resulting diff. Record
files hold one record per line: a decimal timestamp and an id, separated
by whitespace. Blank lines and #-comments are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(simLevel.Level)
		logger, err := cfg.Build()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return runSim(cmd.OutOrStdout(), afero.NewOsFs(), logger)
	},
}

type simSide struct {
	name string
	rec  *negentropy.Reconciler
	done bool
}

func runSim(w io.Writer, fsys afero.Fs, logger *zap.Logger) error {
	ours, err := loadRecords(fsys, oursPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", oursPath, err)
	}
	theirs, err := loadRecords(fsys, theirsPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", theirsPath, err)
	}
	newSide := func(name string, records []negentropy.Record) *simSide {
		opts := []negentropy.Option{
			negentropy.WithSplitThreshold(splitThreshold),
			negentropy.WithLogger(logger.Named(name)),
		}
		if frameSizeLimit > 0 {
			opts = append(opts, negentropy.WithFrameSizeLimit(frameSizeLimit))
		}
		return &simSide{name: name, rec: negentropy.NewReconciler(records, opts...)}
	}
	client := newSide("client", ours)
	server := newSide("server", theirs)
	fmt.Fprintf(w, "client: %d records, server: %d records\n", len(ours), len(theirs))

	var total int
	sender, receiver := client, server
	msg := client.rec.Initiate()
	for round := 1; ; round++ {
		if round > maxRounds {
			return fmt.Errorf("no convergence after %d messages", maxRounds)
		}
		encoded := msg.Encode()
		total += len(encoded)
		fmt.Fprintf(w, "round %2d  %s: %4d bytes, %d ranges\n",
			round, sender.name, len(encoded), len(msg.Ranges))
		haveBefore, needBefore := receiver.rec.DiffSizes()
		reply := receiver.rec.Process(msg)
		haveAfter, needAfter := receiver.rec.DiffSizes()
		// A side has converged once a round is complete in both directions
		// and taught it nothing new. When the second side gets there too,
		// its reply can only echo ids both diffs already account for.
		receiver.done = msg.IsComplete() && reply.IsComplete() &&
			haveBefore == haveAfter && needBefore == needAfter
		if sender.done && receiver.done {
			break
		}
		msg = reply
		sender, receiver = receiver, sender
	}
	fmt.Fprintf(w, "converged: %d bytes transferred\n", total)
	printDiff(w, client)
	printDiff(w, server)
	return nil
}

func printDiff(w io.Writer, s *simSide) {
	have, need := s.rec.Have(), s.rec.Need()
	fmt.Fprintf(w, "%s: have %d, need %d\n", s.name, len(have), len(need))
	for _, id := range have {
		fmt.Fprintf(w, "  have %s\n", id)
	}
	for _, id := range need {
		fmt.Fprintf(w, "  need %s\n", id)
	}
}

// loadRecords reads one record per line: a decimal timestamp and an id
// accepted by parseID, separated by whitespace.
func loadRecords(fsys afero.Fs, path string) ([]negentropy.Record, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var records []negentropy.Record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want timestamp and id", i+1)
		}
		ts, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", i+1, err)
		}
		id, err := parseID(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, negentropy.Record{Timestamp: ts, ID: id})
	}
	return records, nil
}
