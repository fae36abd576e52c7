package mode_s

import (
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"track1090/track"
)

const MODES_LONG_MSG_BITS = 112
const MODES_SHORT_MSG_BITS = 56
const MODES_LONG_MSG_BYTES = (112 / 8)
const MODES_SHORT_MSG_BYTES = (56 / 8)

const (
	MODES_ICAO_CACHE_TTL = 60 /* Time to live of cached addresses. */
)

const (
	East = 0
	West = 1

	North = 0
	South = 1
)

type Decoder struct {
	/* Internal state */
	icao_cache *cache.Cache /* Recently seen ICAO addresses cache. */

	/* Configuration */
	fix_errors bool /* Single bit error correction if true. */
	aggressive bool /* Aggressive detection algorithm. */
}

/* Parity table for MODE S Messages.
 * The table contains 112 elements, every element corresponds to a bit set
 * in the message, starting from the first bit of actual data after the
 * preamble.
 *
 * For messages of 112 bit, the whole table is used.
 * For messages of 56 bits only the last 56 elements are used.
 *
 * The algorithm is as simple as xoring all the elements in this table
 * for which the corresponding bit on the message is set to 1.
 *
 * The latest 24 elements in this table are set to 0 as the checksum at the
 * end of the message should not affect the computation.
 *
 * Note: this function can be used with DF11 and DF17, other modes have
 * the CRC xored with the sender address as they are reply to interrogations,
 * but a casual listener can't split the address from the checksum.
 */
func modesChecksumTable() []uint32 {
	return []uint32{
		0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
		0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
		0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
		0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
		0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
		0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
		0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
		0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
		0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
		0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
		0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
		0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
		0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
		0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	}
}

func modesChecksum(msg []byte, bits int) uint32 {
	var crc uint32 = 0
	var offset int
	if bits == 112 {
		offset = 0
	} else {
		offset = 112 - 56
	}

	for j := 0; j < bits; j++ {
		s_byte := j / 8
		var s_bit byte = byte(j) % 8
		var s_bitmask byte = 1 << (7 - s_bit)

		/* If bit is set, xor with corresponding table entry. */
		if (msg[s_byte] & s_bitmask) != 0 {
			crc ^= modesChecksumTable()[j+offset]
		}
	}
	return crc /* 24 bit checksum. */
}

/* Given the Downlink Format (DF) of the message, return the message length
 * in bits. */
func modesMessageLenByType(msgType int) int {
	switch msgType {
	case 16, 17, 18, 19, 20, 21:
		return MODES_LONG_MSG_BITS
	default:
		return MODES_SHORT_MSG_BITS

	}
}

/* Try to fix single bit errors using the checksum. On success modifies
 * the original buffer with the fixed version, and returns the position
 * of the error bit. Otherwise if fixing failed -1 is returned. */
func fixSingleBitErrors(msg []byte, bits int) int {
	msgBytes := bits / 8
	var aux []byte = make([]byte, msgBytes)

	for j := 0; j < bits; j++ {
		s_byte := j / 8
		var bitmask byte = 1 << (7 - (j % 8))
		var crc1, crc2 uint32

		copy(aux, msg)
		aux[s_byte] ^= bitmask /* Flip j-th bit. */

		crc1 = (uint32(aux[msgBytes-3]) << 16) |
			(uint32(aux[msgBytes-2]) << 8) |
			uint32(aux[msgBytes-1])
		crc2 = modesChecksum(aux, bits)

		if crc1 == crc2 {
			/* The error is fixed. Overwrite the original buffer with
			 * the corrected sequence, and returns the error bit
			 * position. */
			copy(msg, aux)
			return j
		}
	}

	return -1
}

/* Similar to fixSingleBitErrors() but try every possible two bit combination.
 * This is very slow and should be tried only against DF17 messages that
 * don't pass the checksum, and only in Aggressive Mode. */
func fixTwoBitsErrors(msg []byte, bits int) int {
	msgBytes := bits / 8
	var aux []byte = make([]byte, msgBytes)

	for j := 0; j < bits; j++ {
		byte1 := j / 8
		var bitmask1 byte = 1 << (7 - (j % 8))

		/* Don't check the same pairs multiple times, so i starts from j+1 */
		for i := j + 1; i < bits; i++ {
			byte2 := i / 8
			var bitmask2 byte = 1 << (7 - (i % 8))
			var crc1, crc2 uint32

			copy(aux, msg)

			aux[byte1] ^= bitmask1 /* Flip j-th bit. */
			aux[byte2] ^= bitmask2 /* Flip i-th bit. */

			crc1 = (uint32(aux[msgBytes-3]) << 16) |
				(uint32(aux[msgBytes-2]) << 8) |
				uint32(aux[msgBytes-1])
			crc2 = modesChecksum(aux, bits)

			if crc1 == crc2 {
				/* The error is fixed. Overwrite the original buffer with
				 * the corrected sequence, and returns the error bit
				 * position. */
				copy(msg, aux)

				/* We return the two bits as a 16 bit integer by shifting
				 * 'i' on the left. This is possible since 'i' will always
				 * be non-zero because i starts from j+1. */
				return j | (i << 8)
			}
		}
	}

	return -1
}

func (self *Decoder) modesInitConfig() {
	self.fix_errors = true
	self.aggressive = false
}

func (self *Decoder) Init() {
	self.modesInitConfig()

	/* Allocate the ICAO address cache. */
	self.icao_cache = cache.New(MODES_ICAO_CACHE_TTL*time.Second, 10*time.Second)
}

/* Add the specified entry to the cache of recently seen ICAO addresses.
 * Note that we also add a timestamp so that we can make sure that the
 * entry is only valid for MODES_ICAO_CACHE_TTL seconds. */
func (self *Decoder) addRecentlySeenICAOAddr(addr uint32) {
	self.icao_cache.SetDefault(fmt.Sprint(addr), addr)
}

/* Returns true if the specified ICAO address was seen in a DF format with
 * proper checksum (not xored with address) no more than MODES_ICAO_CACHE_TTL
 * seconds ago. */
func (self *Decoder) icaoAddressWasRecentlySeen(addr uint32) bool {
	_, found := self.icao_cache.Get(fmt.Sprint(addr))
	return found
}

/* If the message type has the checksum xored with the ICAO address, try to
 * brute force it using a list of recently seen ICAO addresses.
 *
 * Do this in a brute-force fashion by xoring the predicted CRC with
 * the address XOR checksum field in the message. This will recover the
 * address: if we found it in our cache, we can assume the message is ok.
 *
 * On success the recovered ICAO address is returned; otherwise an error. */
func (self *Decoder) bruteForceAP(msg []byte, msgtype, msgbits int) (uint32, error) {

	switch msgtype {
	case 0, /* Short air surveillance */
		4,  /* Surveillance, altitude reply */
		5,  /* Surveillance, identity reply */
		16, /* Long Air-Air survillance */
		20, /* Comm-A, altitude request */
		21, /* Comm-A, identity request */
		24: /* Comm-C ELM */

		var aux []byte = make([]byte, MODES_LONG_MSG_BYTES)

		var addr uint32
		var crc uint32
		lastbyte := (msgbits / 8) - 1

		/* Work on a copy. */
		copy(aux, msg)

		/* Compute the CRC of the message and XOR it with the AP field
		 * so that we recover the address, because:
		 *
		 * (ADDR xor CRC) xor CRC = ADDR. */
		crc = modesChecksum(aux, msgbits)
		aux[lastbyte] ^= byte(crc & 0xff)
		aux[lastbyte-1] ^= byte((crc >> 8) & 0xff)
		aux[lastbyte-2] ^= byte((crc >> 16) & 0xff)

		/* If the obtained address exists in our cache we consider
		 * the message valid. */
		addr = uint32(aux[lastbyte]) | uint32(aux[lastbyte-1])<<8 | uint32(aux[lastbyte-2])<<16
		if self.icaoAddressWasRecentlySeen(addr) {
			return addr, nil
		}
	}

	return 0, fmt.Errorf("can't recover message")
}

/* Decode the 13 bit AC altitude field (in DF 20 and others).
 * Returns the altitude in feet, or ok=false if it can't be decoded. */
func decodeAC13Field(msg []byte) (altitude int, ok bool) {
	m_bit := msg[3] & (1 << 6)
	q_bit := msg[3] & (1 << 4)

	if m_bit == 0 && q_bit != 0 {
		/* N is the 11 bit integer resulting from the removal of bit
		 * Q and M */
		n := ((uint(msg[2]) & 31) << 6) |
			((uint(msg[3]) & 0x80) >> 2) |
			((uint(msg[3]) & 0x20) >> 1) |
			(uint(msg[3]) & 15)
		/* The final altitude is due to the resulting number multiplied
		 * by 25, minus 1000. */
		return int(n)*25 - 1000, true
	}

	/* Metric and 100 ft increment encodings are not handled. */
	return 0, false
}

/* Decode the 12 bit AC altitude field (in DF 17 and others).
 * Returns the altitude in feet, or ok=false if it can't be decoded. */
func decodeAC12Field(msg []byte) (altitude int, ok bool) {
	q_bit := msg[5] & 1

	if q_bit != 0 {
		/* N is the 11 bit integer resulting from the removal of bit
		 * Q */
		n := ((uint(msg[5]) >> 1) << 4) | ((uint(msg[6]) & 0xF0) >> 4)
		/* The final altitude is due to the resulting number multiplied
		 * by 25, minus 1000. */
		return int(n)*25 - 1000, true
	}

	return 0, false
}

/* Decode the interleaved 13 bit identity field of DF4,5,20,21 into the
 * 4 octal squawk digits, one per nibble.
 *
 * In the identity field bits are interleaved like that
 * (message bit 20 to bit 32):
 *
 * C1-A1-C2-A2-C4-A4-ZERO-B1-D1-B2-D2-B4-D4
 *
 * For more info: http://en.wikipedia.org/wiki/Gillham_code */
func decodeIdentityField(msg []byte) uint32 {
	var a, b, c, d uint32

	a = uint32(((msg[3] & 0x80) >> 5) |
		((msg[2] & 0x02) >> 0) |
		((msg[2] & 0x08) >> 3))
	b = uint32(((msg[3] & 0x02) << 1) |
		((msg[3] & 0x08) >> 2) |
		((msg[3] & 0x20) >> 5))
	c = uint32(((msg[2] & 0x01) << 2) |
		((msg[2] & 0x04) >> 1) |
		((msg[2] & 0x10) >> 4))
	d = uint32(((msg[3] & 0x01) << 2) |
		((msg[3] & 0x04) >> 1) |
		((msg[3] & 0x10) >> 4))

	return a<<12 | b<<8 | c<<4 | d
}

/* Extract a bit run from the 56 bit ME field of an extended squitter.
 * Bits are numbered from 1 (first bit of the ME field) as in DO-260B. */
func getbits(me []byte, first, last uint) uint {
	var v uint
	for i := first; i <= last; i++ {
		v <<= 1
		if me[(i-1)/8]&(1<<(7-((i-1)%8))) != 0 {
			v |= 1
		}
	}
	return v
}

/* Navigation uncertainty from the extended squitter type code. */
func nucpFromMetype(metype int) int {
	switch {
	case metype >= 5 && metype <= 8:
		return 14 - metype
	case metype >= 9 && metype <= 18:
		return 18 - metype
	case metype >= 20 && metype <= 22:
		return 29 - metype
	default:
		return 0
	}
}

var aisCharset = []rune("?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????")

/* Decode a raw Mode S message demodulated as a stream of bytes, and turn
 * it into the tracker's input record. The timestamp and signal level are
 * carried through untouched. Frames that fail the CRC (and cannot be
 * repaired or brute-forced) are dropped with an error. */
func (self *Decoder) Decode(raw []byte, timestamp int64, signalLevel float64) (*track.Message, error) {
	/* Work on our local copy */
	msg := make([]byte, len(raw))
	copy(msg, raw)

	/* Get the message type ASAP as other operations depend on this */
	msgtype := int(msg[0]) >> 3 /* Downlink Format */
	msgbits := modesMessageLenByType(msgtype)

	if len(msg) < msgbits/8 {
		return nil, fmt.Errorf("short frame: %d bytes for DF%d", len(msg), msgtype)
	}

	/* CRC is always the last three bytes. */
	crc := (uint32(msg[(msgbits/8)-3]) << 16) |
		(uint32(msg[(msgbits/8)-2]) << 8) |
		uint32(msg[(msgbits/8)-1])
	crcok := crc == modesChecksum(msg, msgbits)

	/* Check CRC and fix single bit errors using the CRC when
	 * possible (DF 11 and 17). */
	errorbit := -1 /* No error */

	if !crcok && self.fix_errors && (msgtype == 11 || msgtype == 17) {
		if errorbit = fixSingleBitErrors(msg, msgbits); errorbit != -1 {
			crcok = true
		} else if self.aggressive && msgtype == 17 {
			if errorbit = fixTwoBitsErrors(msg, msgbits); errorbit != -1 {
				crcok = true
			}
		}
	}

	m := &track.Message{
		Timestamp:   timestamp,
		SignalLevel: signalLevel,
		DF:          msgtype,
		AddrType:    track.AddrUnknown,
	}

	switch msgtype {
	case 11, 17, 18:
		/* The address is carried in the clear and the CRC covers it. */
		if !crcok {
			return nil, fmt.Errorf("bad CRC on DF%d", msgtype)
		}

		m.Addr = uint32(msg[1])<<16 | uint32(msg[2])<<8 | uint32(msg[3])
		m.AddrType = track.AddrADSBICAO
		if msgtype == 18 {
			m.AddrType = track.AddrADSBICAONT
		}

		switch {
		case msgtype == 11:
			m.Source = track.SourceModeSChecked
		case errorbit == -1:
			m.Source = track.SourceADSB
		default:
			/* Repaired squitters are trusted less than clean ones. */
			m.Source = track.SourceADSBWithCPR
		}

		/* Populate the whitelist used to brute force AP replies. */
		if errorbit == -1 {
			self.addRecentlySeenICAOAddr(m.Addr)
		}

	default:
		/* The checksum is xored with the aircraft address; try to
		 * recover it against recently seen addresses. */
		addr, err := self.bruteForceAP(msg, msgtype, msgbits)
		if err != nil {
			return nil, fmt.Errorf("DF%d: %w", msgtype, err)
		}
		m.Addr = addr
		m.AddrType = track.AddrADSBICAO
		m.Source = track.SourceModeSChecked
	}

	/* Decode 13 bit altitude for DF0, DF4, DF16, DF20 */
	if msgtype == 0 || msgtype == 4 || msgtype == 16 || msgtype == 20 {
		if alt, ok := decodeAC13Field(msg); ok {
			m.AltitudeValid = true
			m.Altitude = alt
			m.AltitudeSource = track.AltSourceBaro
		}
	}

	/* 13 bit identity (squawk) for DF5, DF21 */
	if msgtype == 5 || msgtype == 21 {
		m.SquawkValid = true
		m.Squawk = decodeIdentityField(msg)
	}

	/* Flight status for DF4,5,20,21 carries the air/ground state. */
	if msgtype == 4 || msgtype == 5 || msgtype == 20 || msgtype == 21 {
		switch int(msg[0]) & 7 {
		case 0, 2:
			m.AirGroundValid = true
			m.AirGround = track.AirGroundAirborne
		case 1, 3:
			m.AirGroundValid = true
			m.AirGround = track.AirGroundGround
		case 4, 5:
			m.AirGroundValid = true
			m.AirGround = track.AirGroundUncertain
		}
	}

	/* Decode extended squitter specific stuff. */
	if msgtype == 17 || msgtype == 18 {
		self.decodeExtendedSquitter(msg, m)
	}

	return m, nil
}

func (self *Decoder) decodeExtendedSquitter(msg []byte, m *track.Message) {
	metype := int(msg[4]) >> 3 /* Extended squitter message type. */
	mesub := int(msg[4]) & 7   /* Extended squitter message subtype. */
	me := msg[4:11]

	switch {
	case metype >= 1 && metype <= 4:
		/* Aircraft Identification and Category */
		flight := make([]rune, 8)
		flight[0] = aisCharset[msg[5]>>2]
		flight[1] = aisCharset[((msg[5]&3)<<4)|(msg[6]>>4)]
		flight[2] = aisCharset[((msg[6]&15)<<2)|(msg[7]>>6)]
		flight[3] = aisCharset[msg[7]&63]
		flight[4] = aisCharset[msg[8]>>2]
		flight[5] = aisCharset[((msg[8]&3)<<4)|(msg[9]>>4)]
		flight[6] = aisCharset[((msg[9]&15)<<2)|(msg[10]>>6)]
		flight[7] = aisCharset[msg[10]&63]

		m.CallsignValid = true
		m.Callsign = string(flight)
		m.CategoryValid = true
		m.Category = uint8(((0x0E - metype) << 4) | mesub)

	case metype >= 5 && metype <= 8:
		/* Surface Position Message */
		m.AirGroundValid = true
		m.AirGround = track.AirGroundGround

		m.CPRValid = true
		m.CPRType = track.CPRSurface
		m.CPROdd = msg[6]&(1<<2) != 0
		m.CPRNucp = nucpFromMetype(metype)
		m.CPRLat = ((int(msg[6]) & 3) << 15) |
			(int(msg[7]) << 7) |
			(int(msg[8]) >> 1)
		m.CPRLon = ((int(msg[8]) & 1) << 16) |
			(int(msg[9]) << 8) |
			int(msg[10])

		/* Movement field: ground speed in a piecewise encoding. */
		if mov := getbits(me, 6, 12); mov > 0 && mov < 125 {
			m.GSValid = true
			m.GS = groundMovement(mov)
		}
		if getbits(me, 13, 13) != 0 {
			m.HeadingValid = true
			m.HeadingType = track.HeadingGroundTrack
			m.Heading = float64(getbits(me, 14, 20)) * 360.0 / 128.0
		}

	case (metype >= 9 && metype <= 18) || (metype >= 20 && metype <= 22):
		/* Airborne Position Message */
		m.AirGroundValid = true
		m.AirGround = track.AirGroundAirborne

		if alt, ok := decodeAC12Field(msg); ok {
			m.AltitudeValid = true
			m.Altitude = alt
			if metype >= 20 {
				/* Types 20-22 carry GNSS height instead of baro. */
				m.AltitudeSource = track.AltSourceGeom
			} else {
				m.AltitudeSource = track.AltSourceBaro
			}
		}

		m.CPRValid = true
		m.CPRType = track.CPRAirborne
		m.CPROdd = msg[6]&(1<<2) != 0
		m.CPRNucp = nucpFromMetype(metype)
		m.CPRLat = ((int(msg[6]) & 3) << 15) |
			(int(msg[7]) << 7) |
			(int(msg[8]) >> 1)
		m.CPRLon = ((int(msg[8]) & 1) << 16) |
			(int(msg[9]) << 8) |
			int(msg[10])

	case metype == 19 && mesub >= 1 && mesub <= 4:
		/* Airborne Velocity Message */
		self.decodeVelocity(msg, mesub, m)

	case metype == 29 && mesub == 1:
		/* Target State and Status */
		self.decodeTargetStatus(me, m)

	case metype == 31 && (mesub == 0 || mesub == 1):
		/* Aircraft Operational Status */
		m.OpStatus.Valid = true
		m.OpStatus.Version = int(getbits(me, 41, 43))
		if m.OpStatus.Version >= 1 {
			m.OpStatus.HRDValid = true
			if getbits(me, 54, 54) != 0 {
				m.OpStatus.HRD = track.HeadingTrue
			} else {
				m.OpStatus.HRD = track.HeadingMagnetic
			}
			m.OpStatus.TAHValid = true
			if getbits(me, 45, 45) != 0 {
				m.OpStatus.TAH = track.HeadingMagnetic
			} else {
				m.OpStatus.TAH = track.HeadingGroundTrack
			}
		}
	}
}

func (self *Decoder) decodeVelocity(msg []byte, mesub int, m *track.Message) {
	if mesub == 1 || mesub == 2 {
		ew_dir := (int(msg[5]) & 4) >> 2
		ew_velocity := ((int(msg[5]) & 3) << 8) | int(msg[6])
		ns_dir := (int(msg[7]) & 0x80) >> 7
		ns_velocity := ((int(msg[7]) & 0x7f) << 3) | ((int(msg[8]) & 0xe0) >> 5)

		if ew_velocity > 0 && ns_velocity > 0 {
			ewv := ew_velocity - 1
			nsv := ns_velocity - 1
			if ew_dir == West {
				ewv *= -1
			}
			if ns_dir == South {
				nsv *= -1
			}
			/* The supersonic variant carries 4 kt units. */
			if mesub == 2 {
				ewv *= 4
				nsv *= 4
			}

			/* Compute velocity and angle from the two speed
			 * components. */
			m.GSValid = true
			m.GS = math.Sqrt(float64(nsv*nsv + ewv*ewv))

			if m.GS > 0 {
				heading := math.Atan2(float64(ewv), float64(nsv)) * 360 / (math.Pi * 2)
				/* We don't want negative values but a 0-360 scale. */
				if heading < 0 {
					heading += 360
				}
				m.HeadingValid = true
				m.HeadingType = track.HeadingGroundTrack
				m.Heading = heading
			}
		}
	} else if mesub == 3 || mesub == 4 {
		if int(msg[5])&(1<<2) != 0 {
			m.HeadingValid = true
			m.HeadingType = track.HeadingMagneticOrTrue
			m.Heading = (360.0 / 1024.0) * float64(((int(msg[5])&3)<<8)|int(msg[6]))
		}

		if airspeed := ((int(msg[7]) & 0x7f) << 3) | ((int(msg[8]) & 0xe0) >> 5); airspeed > 0 {
			speed := airspeed - 1
			if mesub == 4 {
				speed *= 4
			}
			if int(msg[7])&0x80 != 0 {
				m.TASValid = true
				m.TAS = speed
			} else {
				m.IASValid = true
				m.IAS = speed
			}
		}
	}

	/* Vertical rate, shared by all subtypes. */
	if vr := ((int(msg[8]) & 7) << 6) | ((int(msg[9]) & 0xfc) >> 2); vr > 0 {
		rate := (vr - 1) * 64
		if int(msg[8])&0x8 != 0 {
			rate *= -1
		}
		if (int(msg[8])&0x10)>>4 != 0 {
			m.BaroRateValid = true
			m.BaroRate = rate
		} else {
			m.GeomRateValid = true
			m.GeomRate = rate
		}
	}

	/* GNSS/baro height difference. */
	if delta := int(msg[10]) & 0x7f; delta > 0 {
		d := (delta - 1) * 25
		if int(msg[10])&0x80 != 0 {
			d *= -1
		}
		m.GeomDeltaValid = true
		m.GeomDelta = d
	}
}

func (self *Decoder) decodeTargetStatus(me []byte, m *track.Message) {
	/* MCP/FMS selected altitude, 32 ft increments. */
	if alt := getbits(me, 10, 20); alt > 0 {
		if getbits(me, 9, 9) != 0 {
			m.Intent.FMSAltitudeValid = true
			m.Intent.FMSAltitude = int(alt-1) * 32
			m.Intent.AltitudeSource = track.IntentAltFMS
		} else {
			m.Intent.MCPAltitudeValid = true
			m.Intent.MCPAltitude = int(alt-1) * 32
			m.Intent.AltitudeSource = track.IntentAltMCP
		}
	}

	/* Barometric pressure setting, offset from 800 hPa. */
	if qnh := getbits(me, 21, 29); qnh > 0 {
		m.Intent.AltSettingValid = true
		m.Intent.AltSetting = 800.0 + float64(qnh-1)*0.8
	}

	if getbits(me, 30, 30) != 0 {
		m.Intent.HeadingValid = true
		m.Intent.Heading = float64(getbits(me, 31, 39)) * 180.0 / 256.0
	}

	if getbits(me, 46, 46) != 0 {
		m.Intent.ModesValid = true
		m.Intent.Modes = track.IntentModes{
			Autopilot: getbits(me, 47, 47) != 0,
			VNAV:      getbits(me, 48, 48) != 0,
			AltHold:   getbits(me, 49, 49) != 0,
			Approach:  getbits(me, 51, 51) != 0,
			TCAS:      getbits(me, 52, 52) != 0,
			LNAV:      getbits(me, 53, 53) != 0,
		}
	}
}

/* Surface movement field to ground speed in knots; the encoding is
 * piecewise linear with finer steps at low speed. */
func groundMovement(mov uint) float64 {
	switch {
	case mov == 1:
		return 0
	case mov <= 8:
		return 0.125 + float64(mov-2)*0.125
	case mov <= 12:
		return 1.0 + float64(mov-9)*0.25
	case mov <= 38:
		return 2.0 + float64(mov-13)*0.5
	case mov <= 93:
		return 15.0 + float64(mov-39)*1.0
	case mov <= 108:
		return 70.0 + float64(mov-94)*2.0
	case mov <= 123:
		return 100.0 + float64(mov-109)*5.0
	default:
		return 175.0
	}
}
