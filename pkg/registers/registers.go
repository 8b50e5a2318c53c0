package registers

// RegisterMap holds the CC1101 configuration, PA table and status registers
type RegisterMap struct {
	// GDO pin configuration
	IOCFG2 uint8 `json:"iocfg2"` // 0x00
	IOCFG1 uint8 `json:"iocfg1"` // 0x01
	IOCFG0 uint8 `json:"iocfg0"` // 0x02

	FIFOTHR uint8 `json:"fifothr"` // 0x03

	// Sync word
	SYNC1 uint8 `json:"sync1"` // 0x04
	SYNC0 uint8 `json:"sync0"` // 0x05

	// Packet control
	PKTLEN   uint8 `json:"pktlen"`   // 0x06
	PKTCTRL1 uint8 `json:"pktctrl1"` // 0x07
	PKTCTRL0 uint8 `json:"pktctrl0"` // 0x08
	ADDR     uint8 `json:"addr"`     // 0x09
	CHANNR   uint8 `json:"channr"`   // 0x0A

	// Frequency synthesizer
	FSCTRL1 uint8 `json:"fsctrl1"` // 0x0B
	FSCTRL0 uint8 `json:"fsctrl0"` // 0x0C

	// Frequency control
	FREQ2 uint8 `json:"freq2"` // 0x0D
	FREQ1 uint8 `json:"freq1"` // 0x0E
	FREQ0 uint8 `json:"freq0"` // 0x0F

	// Modem configuration
	MDMCFG4 uint8 `json:"mdmcfg4"` // 0x10
	MDMCFG3 uint8 `json:"mdmcfg3"` // 0x11
	MDMCFG2 uint8 `json:"mdmcfg2"` // 0x12
	MDMCFG1 uint8 `json:"mdmcfg1"` // 0x13
	MDMCFG0 uint8 `json:"mdmcfg0"` // 0x14
	DEVIATN uint8 `json:"deviatn"` // 0x15

	// Main radio control state machine
	MCSM2 uint8 `json:"mcsm2"` // 0x16
	MCSM1 uint8 `json:"mcsm1"` // 0x17
	MCSM0 uint8 `json:"mcsm0"` // 0x18

	// Frequency offset compensation
	FOCCFG uint8 `json:"foccfg"` // 0x19
	BSCFG  uint8 `json:"bscfg"`  // 0x1A

	// AGC control
	AGCCTRL2 uint8 `json:"agcctrl2"` // 0x1B
	AGCCTRL1 uint8 `json:"agcctrl1"` // 0x1C
	AGCCTRL0 uint8 `json:"agcctrl0"` // 0x1D

	// Wake on radio
	WOREVT1 uint8 `json:"worevt1"` // 0x1E
	WOREVT0 uint8 `json:"worevt0"` // 0x1F
	WORCTRL uint8 `json:"worctrl"` // 0x20

	// Front end configuration
	FREND1 uint8 `json:"frend1"` // 0x21
	FREND0 uint8 `json:"frend0"` // 0x22

	// Frequency synthesizer calibration
	FSCAL3 uint8 `json:"fscal3"` // 0x23
	FSCAL2 uint8 `json:"fscal2"` // 0x24
	FSCAL1 uint8 `json:"fscal1"` // 0x25
	FSCAL0 uint8 `json:"fscal0"` // 0x26

	// RC oscillator
	RCCTRL1 uint8 `json:"rcctrl1"` // 0x27
	RCCTRL0 uint8 `json:"rcctrl0"` // 0x28

	// Test registers
	FSTEST  uint8 `json:"fstest"`  // 0x29
	PTEST   uint8 `json:"ptest"`   // 0x2A
	AGCTEST uint8 `json:"agctest"` // 0x2B
	TEST2   uint8 `json:"test2"`   // 0x2C
	TEST1   uint8 `json:"test1"`   // 0x2D
	TEST0   uint8 `json:"test0"`   // 0x2E

	// Power amplifier table, PATABLE index 0 first
	PA_TABLE [8]uint8 `json:"pa_table"` // 0x3E

	// Read-only status registers
	PARTNUM    uint8 `json:"partnum"`    // 0x30
	VERSION    uint8 `json:"version"`    // 0x31
	FREQEST    uint8 `json:"freqest"`    // 0x32
	LQI        uint8 `json:"lqi"`        // 0x33
	RSSI       uint8 `json:"rssi"`       // 0x34
	MARCSTATE  uint8 `json:"marcstate"`  // 0x35
	PKTSTATUS  uint8 `json:"pktstatus"`  // 0x38
	VCO_VC_DAC uint8 `json:"vco_vc_dac"` // 0x39
	TXBYTES    uint8 `json:"txbytes"`    // 0x3A
	RXBYTES    uint8 `json:"rxbytes"`    // 0x3B
}

// ConfigBlockLen is the number of configuration registers, 0x00 through 0x2E
const ConfigBlockLen = RegTEST0 + 1

// ConfigBlock returns the configuration registers in address order
func (r *RegisterMap) ConfigBlock() []byte {
	return []byte{
		r.IOCFG2, r.IOCFG1, r.IOCFG0, r.FIFOTHR,
		r.SYNC1, r.SYNC0,
		r.PKTLEN, r.PKTCTRL1, r.PKTCTRL0, r.ADDR, r.CHANNR,
		r.FSCTRL1, r.FSCTRL0,
		r.FREQ2, r.FREQ1, r.FREQ0,
		r.MDMCFG4, r.MDMCFG3, r.MDMCFG2, r.MDMCFG1, r.MDMCFG0,
		r.DEVIATN,
		r.MCSM2, r.MCSM1, r.MCSM0,
		r.FOCCFG, r.BSCFG,
		r.AGCCTRL2, r.AGCCTRL1, r.AGCCTRL0,
		r.WOREVT1, r.WOREVT0, r.WORCTRL,
		r.FREND1, r.FREND0,
		r.FSCAL3, r.FSCAL2, r.FSCAL1, r.FSCAL0,
		r.RCCTRL1, r.RCCTRL0,
		r.FSTEST, r.PTEST, r.AGCTEST, r.TEST2, r.TEST1, r.TEST0,
	}
}

// SetConfigBlock loads registers from a block that starts at address 0x00.
// Short blocks leave the remaining registers untouched.
func (r *RegisterMap) SetConfigBlock(block []byte) {
	fields := []*uint8{
		&r.IOCFG2, &r.IOCFG1, &r.IOCFG0, &r.FIFOTHR,
		&r.SYNC1, &r.SYNC0,
		&r.PKTLEN, &r.PKTCTRL1, &r.PKTCTRL0, &r.ADDR, &r.CHANNR,
		&r.FSCTRL1, &r.FSCTRL0,
		&r.FREQ2, &r.FREQ1, &r.FREQ0,
		&r.MDMCFG4, &r.MDMCFG3, &r.MDMCFG2, &r.MDMCFG1, &r.MDMCFG0,
		&r.DEVIATN,
		&r.MCSM2, &r.MCSM1, &r.MCSM0,
		&r.FOCCFG, &r.BSCFG,
		&r.AGCCTRL2, &r.AGCCTRL1, &r.AGCCTRL0,
		&r.WOREVT1, &r.WOREVT0, &r.WORCTRL,
		&r.FREND1, &r.FREND0,
		&r.FSCAL3, &r.FSCAL2, &r.FSCAL1, &r.FSCAL0,
		&r.RCCTRL1, &r.RCCTRL0,
		&r.FSTEST, &r.PTEST, &r.AGCTEST, &r.TEST2, &r.TEST1, &r.TEST0,
	}
	for i, v := range block {
		if i >= len(fields) {
			break
		}
		*fields[i] = v
	}
}

// RadioState represents the main radio control state (MARCSTATE)
type RadioState uint8

const (
	StateSLEEP       RadioState = 0x00
	StateIDLE        RadioState = 0x01
	StateXOFF        RadioState = 0x02
	StateVCOON_MC    RadioState = 0x03
	StateREGON_MC    RadioState = 0x04
	StateMAN_CAL     RadioState = 0x05
	StateVCOON       RadioState = 0x06
	StateREGON       RadioState = 0x07
	StateSTARTCAL    RadioState = 0x08
	StateBWBOOST     RadioState = 0x09
	StateFS_LOCK     RadioState = 0x0A
	StateIFADCON     RadioState = 0x0B
	StateENDCAL      RadioState = 0x0C
	StateRX          RadioState = 0x0D
	StateRX_END      RadioState = 0x0E
	StateRX_RST      RadioState = 0x0F
	StateTXRX_SWITCH RadioState = 0x10
	StateRXFIFO_OVF  RadioState = 0x11
	StateFSTXON      RadioState = 0x12
	StateTX          RadioState = 0x13
	StateTX_END      RadioState = 0x14
	StateRXTX_SWITCH RadioState = 0x15
	StateTXFIFO_UNF  RadioState = 0x16
)

var radioStateNames = map[RadioState]string{
	StateSLEEP:       "SLEEP",
	StateIDLE:        "IDLE",
	StateXOFF:        "XOFF",
	StateVCOON_MC:    "VCOON_MC",
	StateREGON_MC:    "REGON_MC",
	StateMAN_CAL:     "MANCAL",
	StateVCOON:       "VCOON",
	StateREGON:       "REGON",
	StateSTARTCAL:    "STARTCAL",
	StateBWBOOST:     "BWBOOST",
	StateFS_LOCK:     "FS_LOCK",
	StateIFADCON:     "IFADCON",
	StateENDCAL:      "ENDCAL",
	StateRX:          "RX",
	StateRX_END:      "RX_END",
	StateRX_RST:      "RX_RST",
	StateTXRX_SWITCH: "TXRX_SWITCH",
	StateRXFIFO_OVF:  "RXFIFO_OVERFLOW",
	StateFSTXON:      "FSTXON",
	StateTX:          "TX",
	StateTX_END:      "TX_END",
	StateRXTX_SWITCH: "RXTX_SWITCH",
	StateTXFIFO_UNF:  "TXFIFO_UNDERFLOW",
}

// String returns a human-readable name for the radio state
func (s RadioState) String() string {
	if name, ok := radioStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ChipState is the 3-bit state field of the status byte clocked out on every header
type ChipState uint8

const (
	ChipIdle        ChipState = 0
	ChipRX          ChipState = 1
	ChipTX          ChipState = 2
	ChipFSTXON      ChipState = 3
	ChipCalibrate   ChipState = 4
	ChipSettling    ChipState = 5
	ChipRXOverflow  ChipState = 6
	ChipTXUnderflow ChipState = 7
)

func (s ChipState) String() string {
	switch s {
	case ChipIdle:
		return "IDLE"
	case ChipRX:
		return "RX"
	case ChipTX:
		return "TX"
	case ChipFSTXON:
		return "FSTXON"
	case ChipCalibrate:
		return "CALIBRATE"
	case ChipSettling:
		return "SETTLING"
	case ChipRXOverflow:
		return "RXFIFO_OVERFLOW"
	default:
		return "TXFIFO_UNDERFLOW"
	}
}

// Configuration register addresses
const (
	RegIOCFG2   = 0x00
	RegIOCFG1   = 0x01
	RegIOCFG0   = 0x02
	RegFIFOTHR  = 0x03
	RegSYNC1    = 0x04
	RegSYNC0    = 0x05
	RegPKTLEN   = 0x06
	RegPKTCTRL1 = 0x07
	RegPKTCTRL0 = 0x08
	RegADDR     = 0x09
	RegCHANNR   = 0x0A
	RegFSCTRL1  = 0x0B
	RegFSCTRL0  = 0x0C
	RegFREQ2    = 0x0D
	RegFREQ1    = 0x0E
	RegFREQ0    = 0x0F
	RegMDMCFG4  = 0x10
	RegMDMCFG3  = 0x11
	RegMDMCFG2  = 0x12
	RegMDMCFG1  = 0x13
	RegMDMCFG0  = 0x14
	RegDEVIATN  = 0x15
	RegMCSM2    = 0x16
	RegMCSM1    = 0x17
	RegMCSM0    = 0x18
	RegFOCCFG   = 0x19
	RegBSCFG    = 0x1A
	RegAGCCTRL2 = 0x1B
	RegAGCCTRL1 = 0x1C
	RegAGCCTRL0 = 0x1D
	RegWOREVT1  = 0x1E
	RegWOREVT0  = 0x1F
	RegWORCTRL  = 0x20
	RegFREND1   = 0x21
	RegFREND0   = 0x22
	RegFSCAL3   = 0x23
	RegFSCAL2   = 0x24
	RegFSCAL1   = 0x25
	RegFSCAL0   = 0x26
	RegRCCTRL1  = 0x27
	RegRCCTRL0  = 0x28
	RegFSTEST   = 0x29
	RegPTEST    = 0x2A
	RegAGCTEST  = 0x2B
	RegTEST2    = 0x2C
	RegTEST1    = 0x2D
	RegTEST0    = 0x2E
)

// Status register addresses. They share 0x30-0x3D with the strobes and
// are only reachable with the burst bit set.
const (
	RegPARTNUM    = 0x30
	RegVERSION    = 0x31
	RegFREQEST    = 0x32
	RegLQI        = 0x33
	RegRSSI       = 0x34
	RegMARCSTATE  = 0x35
	RegWORTIME1   = 0x36
	RegWORTIME0   = 0x37
	RegPKTSTATUS  = 0x38
	RegVCO_VC_DAC = 0x39
	RegTXBYTES    = 0x3A
	RegRXBYTES    = 0x3B
)

// PA table and FIFO addresses
const (
	RegPATABLE = 0x3E
	RegFIFO    = 0x3F
)

// Header byte flags
const (
	FlagBurst = 0x40
	FlagRead  = 0x80
)

// Pre-encoded headers
const (
	HeaderBurstTXFIFO  = RegFIFO | FlagBurst               // 0x7F
	HeaderSingleRXFIFO = RegFIFO | FlagRead                // 0xBF
	HeaderBurstPATABLE = RegPATABLE | FlagBurst            // 0x7E
	HeaderTXBYTES      = RegTXBYTES | FlagRead | FlagBurst // 0xFA
	HeaderRXBYTES      = RegRXBYTES | FlagRead | FlagBurst // 0xFB
	HeaderMARCSTATE    = RegMARCSTATE | FlagRead | FlagBurst
)

// Command strobes
const (
	StrobeSRES    = 0x30 // Reset chip
	StrobeSFSTXON = 0x31 // Enable and calibrate frequency synthesizer
	StrobeSXOFF   = 0x32 // Turn off crystal oscillator
	StrobeSCAL    = 0x33 // Calibrate frequency synthesizer and turn it off
	StrobeSRX     = 0x34 // Enable RX
	StrobeSTX     = 0x35 // Enable TX
	StrobeSIDLE   = 0x36 // Exit RX/TX, turn off frequency synthesizer
	StrobeSAFC    = 0x37 // Frequency offset compensation
	StrobeSWOR    = 0x38 // Start wake-on-radio polling
	StrobeSPWD    = 0x39 // Power down when CSn goes high
	StrobeSFRX    = 0x3A // Flush the RX FIFO
	StrobeSFTX    = 0x3B // Flush the TX FIFO
	StrobeSWORRST = 0x3C // Reset the WOR timer
	StrobeSNOP    = 0x3D // No operation, returns the status byte
)

// IsStrobe reports whether a header byte with no burst bit addresses a strobe
func IsStrobe(header uint8) bool {
	addr := header & 0x3F
	return header&FlagBurst == 0 && addr >= StrobeSRES && addr <= StrobeSNOP
}

// FIFO status flags in TXBYTES/RXBYTES
const (
	FIFOErrorFlag = 0x80 // TX underflow / RX overflow
	FIFOCountMask = 0x7F
)

// FIFO geometry
const FIFOSize = 64

// Modulation formats (MDMCFG2[6:4])
const (
	Mod2FSK   = 0x00 // 2-FSK
	ModGFSK   = 0x10 // GFSK
	ModASKOOK = 0x30 // ASK/OOK
	Mod4FSK   = 0x40 // 4-FSK
	ModMSK    = 0x70 // MSK
)

// Sync mode (MDMCFG2[2:0])
const (
	SyncNone          = 0x00 // No preamble/sync
	Sync15of16        = 0x01 // 15/16 sync word bits detected
	Sync16of16        = 0x02 // 16/16 sync word bits detected
	Sync30of32        = 0x03 // 30/32 sync word bits detected
	SyncCarrier       = 0x04 // Carrier-sense above threshold
	SyncCarrier15of16 = 0x05 // Carrier-sense + 15/16 sync
	SyncCarrier16of16 = 0x06 // Carrier-sense + 16/16 sync
	SyncCarrier30of32 = 0x07 // Carrier-sense + 30/32 sync
)

// Packet length config (PKTCTRL0[1:0])
const (
	PktLenFixed    = 0x00 // Fixed packet length mode
	PktLenVariable = 0x01 // Variable packet length mode
	PktLenInfinite = 0x02 // Infinite packet length mode
)

// GDO signal selections used by this board
const (
	GDOSyncWord = 0x06 // asserts on sync word, deasserts at end of packet
	GDOCCA      = 0x09 // clear channel assessment
	GDOTXThresh = 0x02 // TX FIFO at or above threshold
	GDOHighZ    = 0x2E
)

// Chip identification for a CC1101
const (
	PartNumCC1101 = 0x00
	VersionCC1101 = 0x14
)
