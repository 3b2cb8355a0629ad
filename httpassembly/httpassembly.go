package httpassembly

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
)

type HttpAssembler struct {
	pool      *reassembly.StreamPool
	assembler *reassembly.Assembler
}

func NewAssembler(factory HttpStreamFactory) *HttpAssembler {
	p := reassembly.NewStreamPool(&factoryWrapper{wrap: factory})
	a := reassembly.NewAssembler(p)
	return &HttpAssembler{pool: p, assembler: a}
}

type assemblyContext struct {
	CaptureInfo gopacket.CaptureInfo
}

func (c *assemblyContext) GetCaptureInfo() gopacket.CaptureInfo {
	return c.CaptureInfo
}

// Assemble feeds one packet. Packets without a TCP layer are ignored.
func (a *HttpAssembler) Assemble(p gopacket.Packet) {
	tcp := p.Layer(layers.LayerTypeTCP)
	if tcp == nil || p.NetworkLayer() == nil {
		return
	}

	c := assemblyContext{CaptureInfo: p.Metadata().CaptureInfo}
	a.assembler.AssembleWithContext(p.NetworkLayer().NetworkFlow(), tcp.(*layers.TCP), &c)
}

// FlushOlderThan closes connections idle since t, handing over whatever
// request/response pairs they completed.
func (a *HttpAssembler) FlushOlderThan(t time.Time) int {
	_, closed := a.assembler.FlushCloseOlderThan(t)
	return closed
}

// FlushAll closes every connection. Call it once the packet source is
// exhausted.
func (a *HttpAssembler) FlushAll() int {
	return a.assembler.FlushAll()
}

type HttpStreamFactory interface {
	New() HttpStream
}

// HttpStream receives the exchanges of one TCP connection in order. Bodies
// are fully read and can be consumed after the callback returns.
type HttpStream interface {
	ReassembledRequestResponse(req *http.Request, res *http.Response)
}

type factoryWrapper struct {
	wrap HttpStreamFactory
}

func (f *factoryWrapper) New(netFlow, tcpFlow gopacket.Flow, tcp *layers.TCP, ac reassembly.AssemblerContext) reassembly.Stream {
	return &streamWrapper{wrap: f.wrap.New()}
}

// streamWrapper buffers each direction of a connection. Requests accumulate
// until the server answers; once the client speaks again the buffered
// exchanges are parsed and handed over.
type streamWrapper struct {
	wrap HttpStream
	req  bytes.Buffer
	res  bytes.Buffer
}

func (s *streamWrapper) Accept(tcp *layers.TCP, ci gopacket.CaptureInfo, dir reassembly.TCPFlowDirection, nextSeq reassembly.Sequence, start *bool, ac reassembly.AssemblerContext) bool {
	return true
}

func (s *streamWrapper) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	dir, _, _, skip := sg.Info()
	if skip != 0 {
		// lost segments; whatever was buffered can no longer be parsed
		slog.Debug("dropping partial http exchange", "skip", skip)
		s.req.Reset()
		s.res.Reset()
	}

	l, _ := sg.Lengths()
	if l == 0 {
		return
	}
	payload := sg.Fetch(l)

	if dir == reassembly.TCPDirClientToServer {
		if s.res.Len() > 0 {
			s.flush()
		}
		s.req.Write(payload)
	} else {
		s.res.Write(payload)
	}
}

func (s *streamWrapper) ReassemblyComplete(ac reassembly.AssemblerContext) bool {
	s.flush()
	return true
}

func (s *streamWrapper) flush() {
	pairs, err := ParsePairs(s.req.Bytes(), s.res.Bytes())
	if err != nil {
		slog.Debug("could not parse http exchange", "err", err, "pairs", len(pairs))
	}
	for _, p := range pairs {
		s.wrap.ReassembledRequestResponse(p.Request, p.Response)
	}
	s.req.Reset()
	s.res.Reset()
}

type Pair struct {
	Request  *http.Request
	Response *http.Response
}

// ParsePairs matches pipelined requests with their responses in order. It
// returns the pairs parsed before the first malformed message together with
// the error. Requests without a response are dropped.
func ParsePairs(req, res []byte) ([]Pair, error) {
	rr := bufio.NewReader(bytes.NewReader(req))
	wr := bufio.NewReader(bytes.NewReader(res))

	var pairs []Pair
	for {
		r, err := http.ReadRequest(rr)
		if errors.Is(err, io.EOF) {
			return pairs, nil
		} else if err != nil {
			return pairs, err
		}
		if err := bufferBody(&r.Body); err != nil {
			return pairs, err
		}

		w, err := http.ReadResponse(wr, r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return pairs, nil
		} else if err != nil {
			return pairs, err
		}
		if err := bufferBody(&w.Body); err != nil {
			return pairs, err
		}

		pairs = append(pairs, Pair{Request: r, Response: w})
	}
}

// bufferBody reads a body off the connection so the next message can be
// parsed, and replaces it with an in-memory copy.
func bufferBody(body *io.ReadCloser) error {
	if *body == nil || *body == http.NoBody {
		return nil
	}
	b, err := io.ReadAll(*body)
	_ = (*body).Close()
	if err != nil {
		return err
	}
	*body = io.NopCloser(bytes.NewReader(b))
	return nil
}
