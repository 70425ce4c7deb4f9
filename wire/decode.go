package wire

// Decode parses a single complete frame, including its leading 4-byte
// size field, into a Message. Callers (the Receiver) are responsible
// for first collecting exactly size bytes off the stream; Decode itself
// re-checks size against len(frame) and fails closed on any mismatch
// (spec §8, law 2: Decode never panics, and rejects a frame whose
// declared size disagrees with its actual length).
//
// Every failure is reported as a *MalformedFrame, so callers can treat
// "the connection sent us garbage" as a single error type.
func Decode(frame []byte) (Message, error) {
	m, err := decode(frame)
	if err != nil {
		if _, ok := err.(*MalformedFrame); ok {
			return nil, err
		}
		return nil, malformed(err)
	}
	return m, nil
}

func decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, errZeroLen
	}
	if len(frame) < headerLen {
		return nil, errTooSmall
	}
	size := guint32(frame[0:4])
	if int(size) != len(frame) {
		return nil, errSizeMismatch
	}
	typ := MsgType(frame[4])
	tag := guint16(frame[5:7])
	body := frame[7:]

	switch typ {
	case MsgTversion:
		return decodeVersion(tag, body, true)
	case MsgRversion:
		return decodeVersion(tag, body, false)
	case MsgTauth:
		return decodeTauth(tag, body)
	case MsgRauth:
		q, err := decodeQidBody(body)
		if err != nil {
			return nil, err
		}
		return Rauth{Tag: tag, Aqid: q}, nil
	case MsgTattach:
		return decodeTattach(tag, body)
	case MsgRattach:
		q, err := decodeQidBody(body)
		if err != nil {
			return nil, err
		}
		return Rattach{Tag: tag, Qid: q}, nil
	case MsgRerror:
		ename, rest, err := getString(body)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, errOverSize
		}
		if len(ename) > MaxErrorLen || !validUTF8(ename) {
			return nil, errLongError
		}
		return Rerror{Tag: tag, Ename: ename}, nil
	case MsgTflush:
		if len(body) != 2 {
			return nil, errOverSize
		}
		return Tflush{Tag: tag, Oldtag: guint16(body)}, nil
	case MsgRflush:
		if len(body) != 0 {
			return nil, errOverSize
		}
		return Rflush{Tag: tag}, nil
	case MsgTwalk:
		return decodeTwalk(tag, body)
	case MsgRwalk:
		return decodeRwalk(tag, body)
	case MsgTopen:
		if len(body) != 5 {
			return nil, errOverSize
		}
		return Topen{Tag: tag, Fid: guint32(body[0:4]), Mode: body[4]}, nil
	case MsgRopen:
		if len(body) != QidLen+4 {
			return nil, errOverSize
		}
		return Ropen{Tag: tag, Qid: getQid(body[:QidLen]), Iounit: guint32(body[QidLen:])}, nil
	case MsgTcreate:
		return decodeTcreate(tag, body)
	case MsgRcreate:
		if len(body) != QidLen+4 {
			return nil, errOverSize
		}
		return Rcreate{Tag: tag, Qid: getQid(body[:QidLen]), Iounit: guint32(body[QidLen:])}, nil
	case MsgTread:
		if len(body) != 16 {
			return nil, errOverSize
		}
		return Tread{
			Tag:    tag,
			Fid:    guint32(body[0:4]),
			Offset: guint64(body[4:12]),
			Count:  guint32(body[12:16]),
		}, nil
	case MsgRread:
		if len(body) < 4 {
			return nil, errOverSize
		}
		n := guint32(body[:4])
		data := body[4:]
		if int(n) != len(data) {
			return nil, errSizeMismatch
		}
		return Rread{Tag: tag, Data: data}, nil
	case MsgTwrite:
		if len(body) < 16 {
			return nil, errOverSize
		}
		n := guint32(body[12:16])
		data := body[16:]
		if int(n) != len(data) {
			return nil, errSizeMismatch
		}
		return Twrite{
			Tag:    tag,
			Fid:    guint32(body[0:4]),
			Offset: guint64(body[4:12]),
			Data:   data,
		}, nil
	case MsgRwrite:
		if len(body) != 4 {
			return nil, errOverSize
		}
		return Rwrite{Tag: tag, Count: guint32(body)}, nil
	case MsgTclunk:
		if len(body) != 4 {
			return nil, errOverSize
		}
		return Tclunk{Tag: tag, Fid: guint32(body)}, nil
	case MsgRclunk:
		if len(body) != 0 {
			return nil, errOverSize
		}
		return Rclunk{Tag: tag}, nil
	case MsgTremove:
		if len(body) != 4 {
			return nil, errOverSize
		}
		return Tremove{Tag: tag, Fid: guint32(body)}, nil
	case MsgRremove:
		if len(body) != 0 {
			return nil, errOverSize
		}
		return Rremove{Tag: tag}, nil
	case MsgTstat:
		if len(body) != 4 {
			return nil, errOverSize
		}
		return Tstat{Tag: tag, Fid: guint32(body)}, nil
	case MsgRstat:
		st, rest, err := decodeWrappedStat(body)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, errOverSize
		}
		return Rstat{Tag: tag, Stat: st}, nil
	case MsgTwstat:
		if len(body) < 4 {
			return nil, errOverSize
		}
		fid := guint32(body[:4])
		st, rest, err := decodeWrappedStat(body[4:])
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, errOverSize
		}
		return Twstat{Tag: tag, Fid: fid, Stat: st}, nil
	case MsgRwstat:
		if len(body) != 0 {
			return nil, errOverSize
		}
		return Rwstat{Tag: tag}, nil
	default:
		return nil, errInvalidMsgType
	}
}

func decodeVersion(tag uint16, body []byte, isT bool) (Message, error) {
	if len(body) < 4 {
		return nil, errOverSize
	}
	msize := guint32(body[:4])
	version, rest, err := getString(body[4:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errOverSize
	}
	if len(version) > MaxVersionLen || !validUTF8(version) {
		return nil, errLongVersion
	}
	if isT {
		return Tversion{Tag: tag, Msize: msize, Version: version}, nil
	}
	return Rversion{Tag: tag, Msize: msize, Version: version}, nil
}

func decodeTauth(tag uint16, body []byte) (Message, error) {
	if len(body) < 4 {
		return nil, errOverSize
	}
	afid := guint32(body[:4])
	uname, rest, err := getString(body[4:])
	if err != nil {
		return nil, err
	}
	if len(uname) > MaxUidLen || !validUTF8(uname) {
		return nil, errLongUsername
	}
	aname, rest, err := getString(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errOverSize
	}
	if len(aname) > MaxAttachLen || !validUTF8(aname) {
		return nil, errLongAname
	}
	return Tauth{Tag: tag, Afid: afid, Uname: uname, Aname: aname}, nil
}

func decodeTattach(tag uint16, body []byte) (Message, error) {
	if len(body) < 8 {
		return nil, errOverSize
	}
	fid := guint32(body[:4])
	afid := guint32(body[4:8])
	uname, rest, err := getString(body[8:])
	if err != nil {
		return nil, err
	}
	if len(uname) > MaxUidLen || !validUTF8(uname) {
		return nil, errLongUsername
	}
	aname, rest, err := getString(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errOverSize
	}
	if len(aname) > MaxAttachLen || !validUTF8(aname) {
		return nil, errLongAname
	}
	return Tattach{Tag: tag, Fid: fid, Afid: afid, Uname: uname, Aname: aname}, nil
}

func decodeQidBody(body []byte) (Qid, error) {
	if len(body) != QidLen {
		return Qid{}, errOverSize
	}
	return getQid(body), nil
}

func decodeTwalk(tag uint16, body []byte) (Message, error) {
	if len(body) < 10 {
		return nil, errOverSize
	}
	fid := guint32(body[:4])
	newfid := guint32(body[4:8])
	nwname := int(guint16(body[8:10]))
	if nwname > MaxWElem {
		return nil, errMaxWElem
	}
	rest := body[10:]
	wname := make([]string, 0, nwname)
	for i := 0; i < nwname; i++ {
		var name string
		var err error
		if name, rest, err = getString(rest); err != nil {
			return nil, err
		}
		if len(name) > MaxFilenameLen || !validUTF8(name) {
			return nil, errLongFilename
		}
		wname = append(wname, name)
	}
	if len(rest) != 0 {
		return nil, errOverSize
	}
	return Twalk{Tag: tag, Fid: fid, Newfid: newfid, Wname: wname}, nil
}

func decodeRwalk(tag uint16, body []byte) (Message, error) {
	if len(body) < 2 {
		return nil, errOverSize
	}
	nwqid := int(guint16(body[:2]))
	if nwqid > MaxWElem {
		return nil, errMaxWElem
	}
	body = body[2:]
	if len(body) != nwqid*QidLen {
		return nil, errOverSize
	}
	wqid := make([]Qid, nwqid)
	for i := range wqid {
		wqid[i] = getQid(body[i*QidLen : (i+1)*QidLen])
	}
	return Rwalk{Tag: tag, Wqid: wqid}, nil
}

func decodeTcreate(tag uint16, body []byte) (Message, error) {
	if len(body) < 4 {
		return nil, errOverSize
	}
	fid := guint32(body[:4])
	name, rest, err := getString(body[4:])
	if err != nil {
		return nil, err
	}
	if len(name) > MaxFilenameLen || !validUTF8(name) {
		return nil, errLongFilename
	}
	if len(rest) != 5 {
		return nil, errOverSize
	}
	perm := guint32(rest[:4])
	mode := rest[4]
	return Tcreate{Tag: tag, Fid: fid, Name: name, Perm: perm, Mode: mode}, nil
}

// decodeWrappedStat strips the outer length-prefixed field that Rstat
// and Twstat wrap a Stat record in, then parses the record itself. This
// is the doubled-size quirk record's doc comment describes: one size
// field belonging to the container, one belonging to the record.
func decodeWrappedStat(body []byte) (Stat, []byte, error) {
	blob, rest, err := getStringBytes(body)
	if err != nil {
		return Stat{}, nil, err
	}
	st, err := decodeRecord(blob)
	if err != nil {
		return Stat{}, nil, err
	}
	return st, rest, nil
}

// getStringBytes is getString without the string conversion: it reads
// a generic length-prefixed byte blob, which is how the outer wrapper
// around a Stat record is framed.
func getStringBytes(b []byte) (blob []byte, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, errOverSize
	}
	n := int(guint16(b[:2]))
	b = b[2:]
	if n > len(b) {
		return nil, nil, errOverSize
	}
	return b[:n], b[n:], nil
}
