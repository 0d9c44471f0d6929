package main

import (
	"context"
	"strings"
	"testing"

	"raydium-engine/internal/raylog"
	"raydium-engine/internal/solana/stub"
)

func TestDecode(t *testing.T) {
	line := stub.SwapBaseInLog(1_000, 0, 1, 5_000, 7_000, 600)
	payload := strings.TrimPrefix(line, "Program log: ray_log: ")

	for _, in := range []string{
		line,
		payload,
		"  " + payload + "\n",
		"> Program log: ray_log: " + payload,
	} {
		ev, err := decode(in)
		if err != nil {
			t.Fatalf("decode(%q) failed: %v", in, err)
		}
		swap, ok := ev.(raylog.SwapBaseIn)
		if !ok {
			t.Fatalf("decode(%q) = %T, want SwapBaseIn", in, ev)
		}
		if swap.AmountIn != 1_000 || swap.AmountOut != 600 {
			t.Errorf("swap = %+v", swap)
		}
	}

	if _, err := decode("not base64!"); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestReadLines(t *testing.T) {
	in := "Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]\n" +
		"Program log: ray_log: AAAA\n\n" +
		"Program log: ray_log: BBBB\n"
	lines, err := readLines(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "BBBB") {
		t.Errorf("lines = %q", lines)
	}

	lines, err = readLines(strings.NewReader("AAAA\n\nBBBB\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Errorf("bare payload lines = %q", lines)
	}
}

func TestFetchLogs(t *testing.T) {
	rpc := stub.NewRPCClient()
	tx := stub.NewTx("sig-1", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU").
		Log("Program "+stub.RaydiumProgram+" invoke [1]", stub.SwapBaseInLog(10, 0, 2, 100, 100, 9)).
		Build()
	rpc.Transactions["sig-1"] = tx
	rpc.Transactions["sig-2"] = stub.NewTx("sig-2", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU").Build()

	lines, err := fetchLogs(context.Background(), rpc, "sig-1")
	if err != nil {
		t.Fatalf("fetchLogs failed: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "ray_log:") {
		t.Errorf("lines = %q", lines)
	}

	if _, err := fetchLogs(context.Background(), rpc, "sig-2"); err == nil {
		t.Error("expected error for transaction without ray_log")
	}
	if _, err := fetchLogs(context.Background(), rpc, "missing"); err == nil {
		t.Error("expected error for unknown signature")
	}
}
