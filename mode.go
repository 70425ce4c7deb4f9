package styxclient

// Open mode, per spec §3: low 2 bits select the access mode, flag
// bits modify it.
const (
	OREAD  uint8 = 0 // open for read
	OWRITE uint8 = 1 // open for write
	ORDWR  uint8 = 2 // open for read and write
	OEXEC  uint8 = 3 // open for execute

	OTRUNC  uint8 = 0x10 // truncate on open; valid only with a write mode
	ORCLOSE uint8 = 0x40 // remove the file when the handle is closed
)
