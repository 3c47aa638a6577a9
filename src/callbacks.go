package direwolf

/*
Where the receive chain hands things to the outside world.

There can be any number of bit observers, DCD listeners, channel busy listeners
and packet sinks.  There is only one FrameSink because it takes ownership of
each raw bit record.  By default that is the Validator which feeds the packet
sinks.

Everything is called synchronously from ProcessSample so it must be quick.
*/

// One demodulated bit, before any NRZI or descrambling.
type BitEvent struct {
	Channel    int
	Subchannel int
	Slice      int

	Raw int // 0 or 1 straight from the slicer.

	IsScrambled  bool
	DescramState int // Descrambler shift register before this bit.

	Quality int // 0 to 100.
}

// Descrambled value of the bit, for a scrambled line.
func (b BitEvent) Descrambled() int {
	if !b.IsScrambled {
		return b.Raw
	}
	var state = b.DescramState
	return descramble(b.Raw, &state)
}

type BitObserver interface {
	RecBit(ev BitEvent)
}

type BitObserverFunc func(ev BitEvent)

func (f BitObserverFunc) RecBit(ev BitEvent) { f(ev) }

// Takes ownership of each raw bit record closed by a flag.
type FrameSink interface {
	RecFrame(block *RRBB)
}

type FrameSinkFunc func(block *RRBB)

func (f FrameSinkFunc) RecFrame(block *RRBB) { f(block) }

type DCDListener interface {
	DCDChange(channel, subchannel, slice int, asserted bool)
}

type DCDListenerFunc func(channel, subchannel, slice int, asserted bool)

func (f DCDListenerFunc) DCDChange(channel, subchannel, slice int, asserted bool) {
	f(channel, subchannel, slice, asserted)
}

// Composite for the channel: any slicer of any subchannel has DCD.
type ChannelBusyListener interface {
	ChannelBusy(channel int, busy bool)
}

type ChannelBusyListenerFunc func(channel int, busy bool)

func (f ChannelBusyListenerFunc) ChannelBusy(channel int, busy bool) { f(channel, busy) }

// Final destination for frames with a good FCS.
type PacketSink interface {
	RecPacket(p *Packet)
}

type PacketSinkFunc func(p *Packet)

func (f PacketSinkFunc) RecPacket(p *Packet) { f(p) }
