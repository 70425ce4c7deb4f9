package txwriter

import (
	"bytes"
	"sync"
	"testing"
)

func TestWriteDoesNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}

	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			w.Write(bytes.Repeat([]byte{'a'}, 16))
		}()
	}
	wg.Wait()

	if buf.Len() != n*16 {
		t.Fatalf("got %d bytes, want %d", buf.Len(), n*16)
	}
}

func TestTxIsolatesMultipleWrites(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tx := w.Tx()
		tx.Write([]byte("head"))
		tx.Write([]byte("body"))
		tx.Close()
	}()
	wg.Wait()

	if got := buf.String(); got != "headbody" {
		t.Fatalf("got %q, want %q", got, "headbody")
	}
}

func TestTxCloseTwiceErrors(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}
	tx := w.Tx()
	tx.Write([]byte("x"))
	if err := tx.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tx.Close(); err == nil {
		t.Fatal("second Close: want error, got nil")
	}
}

func TestWriteAfterCloseErrors(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}
	tx := w.Tx()
	tx.Write([]byte("x"))
	tx.Close()
	if _, err := tx.Write([]byte("y")); err == nil {
		t.Fatal("Write after Close: want error, got nil")
	}
}
