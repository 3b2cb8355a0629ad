package listener

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type PacketSource interface {
	Packets() chan gopacket.Packet
}

var _ PacketSource = (*gopacket.PacketSource)(nil)

// ErrLiveCaptureUnsupported is returned by NewPacketSourceLive in builds
// without the pcap tag.
var ErrLiveCaptureUnsupported = errors.New("live capture requires a build with -tags pcap")

// pcapng section header block type
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// FileSource replays a capture file. The packet channel is closed once the
// file is exhausted.
type FileSource struct {
	*gopacket.PacketSource
	f *os.File
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

// NewPacketSourceFile opens a pcap or pcapng capture without libpcap.
func NewPacketSourceFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := newPacketSourceReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSource{PacketSource: src, f: f}, nil
}

func newPacketSourceReader(r io.Reader) (*gopacket.PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, err
	}

	var data gopacket.PacketDataSource
	var link layers.LinkType
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		data, link = ng, ng.LinkType()
	} else {
		rd, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, err
		}
		data, link = rd, rd.LinkType()
	}

	src := gopacket.NewPacketSource(data, link)
	src.DecodeOptions.Lazy = true
	return src, nil
}
