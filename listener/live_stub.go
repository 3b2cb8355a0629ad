//go:build !pcap

package listener

func NewPacketSourceLive(device, filter string) (PacketSource, error) {
	return nil, ErrLiveCaptureUnsupported
}
