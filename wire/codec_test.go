package wire

import (
	"bytes"
	"testing"
)

// roundtrip checks spec §8's law 1: Decode(Encode(m)) reproduces m.
func roundtrip(t *testing.T, m Message) Message {
	t.Helper()
	b, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode(%T): %v", m, err)
	}
	if int(guint32(b[:4])) != len(b) {
		t.Fatalf("Encode(%T): size field %d does not match frame length %d", m, guint32(b[:4]), len(b))
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode(Encode(%T)): %v", m, err)
	}
	return got
}

func TestRoundtripVersion(t *testing.T) {
	m := Tversion{Tag: NoTag, Msize: DefaultMsize, Version: DefaultVersion}
	got := roundtrip(t, m)
	rv, ok := got.(Tversion)
	if !ok || rv != m {
		t.Fatalf("got %#v, want %#v", got, m)
	}
}

func TestRoundtripAttach(t *testing.T) {
	m := Tattach{Tag: 1, Fid: 0, Afid: NoFid, Uname: "glenda", Aname: ""}
	got := roundtrip(t, m)
	if got != Message(m) {
		t.Fatalf("got %#v, want %#v", got, m)
	}
}

func TestRoundtripWalk(t *testing.T) {
	m := Twalk{Tag: 2, Fid: 0, Newfid: 1, Wname: []string{"usr", "glenda", "file"}}
	got := roundtrip(t, m).(Twalk)
	if got.Tag != m.Tag || got.Fid != m.Fid || got.Newfid != m.Newfid || len(got.Wname) != len(m.Wname) {
		t.Fatalf("got %#v, want %#v", got, m)
	}
	for i := range m.Wname {
		if got.Wname[i] != m.Wname[i] {
			t.Fatalf("wname[%d]: got %q want %q", i, got.Wname[i], m.Wname[i])
		}
	}
}

func TestRoundtripRwalkEmpty(t *testing.T) {
	m := Rwalk{Tag: 2, Wqid: nil}
	got := roundtrip(t, m).(Rwalk)
	if len(got.Wqid) != 0 {
		t.Fatalf("got %d qids, want 0", len(got.Wqid))
	}
}

func TestRoundtripReadWrite(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 37)
	wm := Twrite{Tag: 3, Fid: 5, Offset: 128, Data: data}
	got := roundtrip(t, wm).(Twrite)
	if got.Fid != wm.Fid || got.Offset != wm.Offset || !bytes.Equal(got.Data, wm.Data) {
		t.Fatalf("got %#v, want %#v", got, wm)
	}

	rm := Rread{Tag: 3, Data: data}
	got2 := roundtrip(t, rm).(Rread)
	if !bytes.Equal(got2.Data, rm.Data) {
		t.Fatalf("got %#v, want %#v", got2, rm)
	}
}

func TestRoundtripStat(t *testing.T) {
	st := Stat{
		Qid:    Qid{Type: QTFILE, Version: 1, Path: 42},
		Mode:   0644,
		Length: 1024,
		Name:   "file",
		Uid:    "glenda",
		Gid:    "glenda",
		Muid:   "glenda",
	}
	m := Rstat{Tag: 9, Stat: st}
	got := roundtrip(t, m).(Rstat)
	if got.Stat != st {
		t.Fatalf("got %#v, want %#v", got.Stat, st)
	}

	wm := Twstat{Tag: 10, Fid: 3, Stat: st}
	got2 := roundtrip(t, wm).(Twstat)
	if got2.Fid != wm.Fid || got2.Stat != st {
		t.Fatalf("got %#v, want %#v", got2, wm)
	}
}

func TestRoundtripError(t *testing.T) {
	m := Rerror{Tag: 4, Ename: "no such file"}
	got := roundtrip(t, m).(Rerror)
	if got.Ename != m.Ename {
		t.Fatalf("got %q, want %q", got.Ename, m.Ename)
	}
}

func TestDecodeRejectsSizeMismatch(t *testing.T) {
	m := Tversion{Tag: NoTag, Msize: DefaultMsize, Version: DefaultVersion}
	b, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	b = append(b, 0xFF) // trailing garbage, size field now disagrees
	if _, err := Decode(b); err == nil {
		t.Fatal("Decode: want error for size mismatch, got nil")
	} else if _, ok := err.(*MalformedFrame); !ok {
		t.Fatalf("Decode: want *MalformedFrame, got %T: %v", err, err)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	m := Tversion{Tag: NoTag, Msize: DefaultMsize, Version: DefaultVersion}
	b, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	b[4] = 0 // not a valid message type
	if _, err := Decode(b); err == nil {
		t.Fatal("Decode: want error for unknown type, got nil")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	m := Tattach{Tag: 1, Fid: 0, Afid: NoFid, Uname: "glenda", Aname: "src"}
	b, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	short := b[:len(b)-3]
	binaryPutSize(short, uint32(len(short)))
	if _, err := Decode(short); err == nil {
		t.Fatal("Decode: want error for truncated frame, got nil")
	}
}

func binaryPutSize(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestDecodeRejectsEmptyFrame(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("Decode(nil): want error, got nil")
	}
	if _, err := Decode([]byte{}); err == nil {
		t.Fatal("Decode(empty): want error, got nil")
	}
}

func TestTwalkRejectsPathSeparator(t *testing.T) {
	m := Twalk{Tag: 1, Fid: 0, Newfid: 1, Wname: []string{"usr", "a/b"}}
	if _, err := Encode(m); err == nil {
		t.Fatal("Encode: want error for a Wname element containing '/', got nil")
	}
}

func TestTwalkRejectsTooManyElements(t *testing.T) {
	names := make([]string, MaxWElem+1)
	for i := range names {
		names[i] = "a"
	}
	m := Twalk{Tag: 1, Fid: 0, Newfid: 1, Wname: names}
	if _, err := Encode(m); err == nil {
		t.Fatal("Encode: want error for too many walk elements, got nil")
	}
}
