package nettest

import (
	"testing"

	"github.com/go9p/styxclient/wire"
)

func TestPipeListenerRoundtrip(t *testing.T) {
	var l PipeListener
	defer l.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		srv := &FakeServer{Conn: conn, Handle: func(m wire.Message) wire.Message {
			tv, ok := m.(wire.Tversion)
			if !ok {
				t.Errorf("got %T, want Tversion", m)
				return nil
			}
			return wire.Rversion{Tag: tv.Tag, Msize: tv.Msize, Version: tv.Version}
		}}
		srv.Serve()
	}()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	req := wire.Tversion{Tag: wire.NoTag, Msize: wire.DefaultMsize, Version: wire.DefaultVersion}
	b, err := wire.Encode(req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(b); err != nil {
		t.Fatal(err)
	}

	reply, err := readFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	m, err := wire.Decode(reply)
	if err != nil {
		t.Fatal(err)
	}
	rv, ok := m.(wire.Rversion)
	if !ok {
		t.Fatalf("got %T, want Rversion", m)
	}
	if rv.Msize != req.Msize || rv.Version != req.Version {
		t.Fatalf("got %#v, want msize=%d version=%q", rv, req.Msize, req.Version)
	}

	conn.Close()
	<-done
}
