//go:build pcap

package listener

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

func NewPacketSourceLive(device, filter string) (PacketSource, error) {
	handle, err := pcap.OpenLive(device, 65535, true, pcap.BlockForever)
	if err != nil {
		return nil, err
	}
	if err = handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, err
	}
	return gopacket.NewPacketSource(handle, handle.LinkType()), nil
}
