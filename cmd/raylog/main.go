// Command raylog decodes Raydium ray_log payloads and prints them as JSON.
//
// Usage:
//
//	raylog <base64>...
//	raylog "Program log: ray_log: <base64>"
//	raylog -rpc https://api.mainnet-beta.solana.com -signature <sig>
//	solana confirm -v <sig> | raylog
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"raydium-engine/internal/raylog"
	"raydium-engine/internal/solana"
)

type output struct {
	Tag   string       `json:"tag"`
	Event raylog.Event `json:"event"`
}

func main() {
	compact := flag.Bool("compact", false, "Print one JSON object per line")
	rpcEndpoint := flag.String("rpc", "https://api.mainnet-beta.solana.com", "Solana RPC HTTP endpoint for -signature")
	signature := flag.String("signature", "", "Decode the ray_log lines of this transaction")
	flag.Parse()

	inputs := flag.Args()
	switch {
	case *signature != "":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		lines, err := fetchLogs(ctx, solana.NewHTTPClient(*rpcEndpoint), *signature)
		if err != nil {
			logrus.WithError(err).WithField("signature", *signature).Fatal("fetch transaction")
		}
		inputs = lines
	case len(inputs) == 0:
		lines, err := readLines(os.Stdin)
		if err != nil {
			logrus.WithError(err).Fatal("read stdin")
		}
		inputs = lines
	}

	enc := json.NewEncoder(os.Stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}

	failed := 0
	for _, in := range inputs {
		ev, err := decode(in)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", truncate(in, 40), err)
			continue
		}
		if err := enc.Encode(output{Tag: ev.Tag().String(), Event: ev}); err != nil {
			logrus.WithError(err).Fatal("encode event")
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// decode accepts a bare payload or any line containing a ray_log record.
func decode(in string) (raylog.Event, error) {
	in = strings.TrimSpace(in)
	if i := strings.Index(in, "ray_log:"); i >= 0 {
		in = strings.TrimSpace(in[i+len("ray_log:"):])
	}
	return raylog.DecodeBase64(in)
}

// readLines keeps only lines carrying ray_log output, or every non-empty line
// when none do.
func readLines(r io.Reader) ([]string, error) {
	var all, logs []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		all = append(all, line)
		if strings.Contains(line, "ray_log:") {
			logs = append(logs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		return logs, nil
	}
	return all, nil
}

// fetchLogs returns the ray_log lines of a confirmed transaction.
func fetchLogs(ctx context.Context, rpc solana.TransactionFetcher, signature string) ([]string, error) {
	tx, err := rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil {
		return nil, errors.New("transaction not found")
	}

	var lines []string
	for _, line := range tx.Meta.LogMessages {
		if strings.Contains(line, raylog.LogPrefix) {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("transaction has no ray_log output")
	}
	return lines, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
