/*
Package styxclient implements a client for the 9P2000 (Styx) file
service protocol: a binary request/response protocol in which a
client issues T-messages over a reliable byte stream and the server
answers with matching R-messages, exchanging fids that name files and
directories on a remote tree.

A typical session:

	s, err := styxclient.Connect("fileserver:564", "glenda")
	if err != nil {
		log.Fatal(err)
	}
	defer s.Disconnect()

	h, err := s.Open("usr/glenda/hello.txt", styxclient.OREAD)
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	data, err := h.Read(-1)

Authentication is out of scope: Connect always attaches with afid =
NoFid. Directory walking, mounting, and caching are the caller's
problem; this package exposes the wire protocol's operations and
nothing more.

A caller that needs to cancel or deadline a single in-flight request,
rather than the whole Session, builds the request itself and passes it
to Session.Do along with a context.Context:

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.Do(ctx, func(tag uint16) wire.Message {
		return wire.Tstat{Tag: tag, Fid: fid}
	})
*/
package styxclient
