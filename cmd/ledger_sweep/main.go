package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"tutorcore/pkg/ledger"
)

const defaultPageSize = 1000

// ledger_sweep prints uploads recorded in the ledger that were never deleted,
// one JSON object per line. A reconciliation job compares them against the
// profiles that reference files and removes the orphans.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <redis-addr> <lookback, e.g. 24h>\n", os.Args[0])
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(addr, rawLookback string, out io.Writer) error {
	lookback, err := time.ParseDuration(rawLookback)
	if err != nil || lookback <= 0 {
		return errors.New("lookback must be a positive duration")
	}
	pageSize := int64(defaultPageSize)
	if v := os.Getenv("TUTOR_LEDGER_SWEEP_PAGE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid TUTOR_LEDGER_SWEEP_PAGE %q", v)
		}
		pageSize = n
	}

	l, err := ledger.NewRedisLedger(ledger.RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		Stream:   os.Getenv("TUTOR_LEDGER_STREAM"),
	})
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	entries, err := l.SinceAll(ctx, time.Now().Add(-lookback), pageSize)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	enc := json.NewEncoder(out)
	for _, e := range ledger.Outstanding(entries) {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
