package link

import "fmt"

// Stats counts node activity since Run started
type Stats struct {
	Commands   uint64 // host commands dispatched
	Configures uint64
	TxFrames   uint64
	RxFrames   uint64
	Backoffs   uint64 // busy-channel deferrals

	BusErrors    uint64
	Timeouts     uint64
	TxUnderflows uint64
	RxAborts     uint64
	UARTErrors   uint64

	Discarded uint64 // host commands with an unknown tag or bad length
	Dropped   uint64 // host commands lost to a full queue
	Overflows uint64 // host commands without a sentinel
	Replaced  uint64 // pending TX frames replaced before they were sent

	LinkResets uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("cmds=%d cfg=%d tx=%d rx=%d backoff=%d bus_err=%d timeout=%d underflow=%d rx_abort=%d uart_err=%d discarded=%d dropped=%d overflow=%d replaced=%d resets=%d",
		s.Commands, s.Configures, s.TxFrames, s.RxFrames, s.Backoffs,
		s.BusErrors, s.Timeouts, s.TxUnderflows, s.RxAborts, s.UARTErrors,
		s.Discarded, s.Dropped, s.Overflows, s.Replaced, s.LinkResets)
}
