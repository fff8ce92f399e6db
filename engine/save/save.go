// Package save implements the binary state block: a fixed-layout,
// little-endian dump of a world's mutable fields. The layout depends only
// on the table sizes of the loaded game, and a block carries the game's
// signature so it is only restored into the database that produced it.
package save

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.save")

const (
	headerSize     = 6 // u32 size, u16 signature
	legacyHeader   = 4 // u16 size, u16 signature
	globalsSize    = 8*4 + 2*8
	roomRecordSize = 1 + 4 + 4*int(types.NumDirections)
	nounRecordSize = 4 + 1
	crtRecordSize  = 4 + 1 + 4
)

// ErrSizeMismatch means the block was not produced for a game with the
// current table sizes. The world is left untouched.
var ErrSizeMismatch = errors.New("save block size does not match this game")

// SignatureError means the block belongs to a different game database.
type SignatureError struct {
	Got, Want uint16
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("save block signature %04x does not match game signature %04x", e.Got, e.Want)
}

// Options controls Decode.
type Options struct {
	// IgnoreStale restores a block with a foreign signature, keeping the
	// current positions of the player and every entity.
	IgnoreStale bool
}

// Codec encodes and decodes state blocks for one game database.
type Codec struct {
	defs *state.Defs
	size int
}

// NewCodec computes the block size for defs.
func NewCodec(defs *state.Defs) *Codec {
	return &Codec{defs: defs, size: blockSize(defs)}
}

// Size returns the size in bytes of every block for this game.
func (c *Codec) Size() int { return c.size }

func bitsetSize(n int) int { return (n + 7) / 8 }

func blockSize(d *state.Defs) int {
	n := headerSize + globalsSize
	n += bitsetSize(d.NumFlags) + 4*d.NumCounters + 4*d.NumVars
	n += roomRecordSize * len(d.Rooms)
	n += nounRecordSize * len(d.Nouns)
	n += crtRecordSize * len(d.Creatures)
	n += state.StringLen * d.NumStrings
	if hasOverlay(d) {
		n += d.NumObjects() * (bitsetSize(d.NumObjFlags) + 4*d.NumObjProps)
	}
	return n
}

func hasOverlay(d *state.Defs) bool { return d.NumObjFlags > 0 || d.NumObjProps > 0 }

// Encode writes the mutable fields of w. Derived state is not stored.
func (c *Codec) Encode(w *state.World) []byte {
	d := c.defs
	b := make([]byte, 0, c.size)
	b = binary.LittleEndian.AppendUint32(b, uint32(c.size))
	b = binary.LittleEndian.AppendUint16(b, d.Signature)

	for _, v := range []int{int(w.Loc), w.Turns, w.Score, int(w.It), int(w.Him), int(w.Her), int(w.Them), int(w.Status)} {
		b = appendInt32(b, v)
	}
	b = binary.LittleEndian.AppendUint64(b, uint64(w.RNGSeed))
	b = binary.LittleEndian.AppendUint64(b, uint64(w.RNGPos))

	b = appendBits(b, w.Flags)
	for _, v := range w.Counters {
		b = appendInt32(b, v)
	}
	for _, v := range w.Vars {
		b = appendInt32(b, v)
	}

	for _, r := range w.Rooms {
		b = append(b, packBits(r.Seen, r.LockedDoor))
		b = binary.LittleEndian.AppendUint32(b, r.Flags)
		for _, e := range r.Exits {
			b = appendInt32(b, int(e))
		}
	}
	for _, n := range w.Nouns {
		b = appendInt32(b, int(n.Location))
		b = append(b, packBits(n.Open, n.Locked, n.On, n.Movable, n.Seen, n.Light))
	}
	for _, cr := range w.Creatures {
		b = appendInt32(b, int(cr.Location))
		b = append(b, packBits(cr.Hostile, cr.Seen, cr.Group))
		b = appendInt32(b, cr.Counter)
	}

	for _, s := range w.Strings {
		slot := make([]byte, state.StringLen)
		copy(slot[:state.StringLen-1], s)
		b = append(b, slot...)
	}

	if hasOverlay(d) {
		for i := range w.ObjFlags {
			b = appendBits(b, w.ObjFlags[i])
			for _, v := range w.ObjProps[i] {
				b = appendInt32(b, v)
			}
		}
	}

	if len(b) != c.size {
		// Only reachable if w does not belong to this codec's game.
		log.Errorf("encoded %d bytes, expected %d", len(b), c.size)
	}
	return b
}

// Upgrade converts a block with the legacy 2-byte size header to the
// current layout. Current blocks are returned unchanged. A legacy block
// whose signature is 0 has the same leading bytes as a current block;
// only Codec.Decode, which knows the expected size, tells them apart.
func Upgrade(block []byte) []byte {
	if len(block) >= headerSize && int(binary.LittleEndian.Uint32(block)) == len(block) {
		return block
	}
	if len(block) >= legacyHeader && int(binary.LittleEndian.Uint16(block)) == len(block) {
		return widenHeader(block)
	}
	return block
}

func widenHeader(block []byte) []byte {
	out := make([]byte, 0, len(block)+2)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(block)+2))
	out = append(out, block[2:]...)
	log.Debug("upgraded legacy save header", "size", len(out))
	return out
}

// upgrade is Upgrade for blocks of this codec's game. It reports whether
// block had the legacy header.
func (c *Codec) upgrade(block []byte) ([]byte, bool) {
	if len(block) == c.size-2 && int(binary.LittleEndian.Uint16(block)) == len(block) {
		return widenHeader(block), true
	}
	return block, false
}

// Signature returns the game signature stored in block.
func Signature(block []byte) (uint16, error) {
	block = Upgrade(block)
	if len(block) < headerSize {
		return 0, ErrSizeMismatch
	}
	return binary.LittleEndian.Uint16(block[4:]), nil
}

// Decode restores block into w and recomputes the derived state. On error
// w is unchanged.
func (c *Codec) Decode(block []byte, w *state.World, opts Options) error {
	d := c.defs
	block, legacy := c.upgrade(block)
	if len(block) != c.size || int(binary.LittleEndian.Uint32(block)) != c.size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(block), c.size)
	}
	stale := false
	// Legacy blocks written before signatures existed carry 0.
	if sig := binary.LittleEndian.Uint16(block[4:]); sig != d.Signature && !(legacy && sig == 0) {
		if !opts.IgnoreStale {
			return &SignatureError{Got: sig, Want: d.Signature}
		}
		stale = true
		log.Warningf("restoring save with signature %04x into game %04x, keeping positions", sig, d.Signature)
	}

	r := reader{b: block, off: headerSize}
	loc := types.Ref(r.int32())
	w.Turns = r.int32()
	w.Score = r.int32()
	it, him, her, them := types.Ref(r.int32()), types.Ref(r.int32()), types.Ref(r.int32()), types.Ref(r.int32())
	w.Status = types.Status(r.int32())
	w.RNGSeed = int64(r.uint64())
	w.RNGPos = int64(r.uint64())

	r.bits(w.Flags)
	for i := range w.Counters {
		w.Counters[i] = r.int32()
	}
	for i := range w.Vars {
		w.Vars[i] = r.int32()
	}

	if stale {
		r.skip(roomRecordSize*len(d.Rooms) + nounRecordSize*len(d.Nouns) + crtRecordSize*len(d.Creatures))
	} else {
		w.Loc = loc
		w.It, w.Him, w.Her, w.Them = it, him, her, them
		for i := range w.Rooms {
			rs := &w.Rooms[i]
			unpackBits(r.byte(), &rs.Seen, &rs.LockedDoor)
			rs.Flags = r.uint32()
			for j := range rs.Exits {
				rs.Exits[j] = types.Ref(r.int32())
			}
		}
		for i := range w.Nouns {
			n := &w.Nouns[i]
			n.Location = types.Ref(r.int32())
			unpackBits(r.byte(), &n.Open, &n.Locked, &n.On, &n.Movable, &n.Seen, &n.Light)
		}
		for i := range w.Creatures {
			cr := &w.Creatures[i]
			cr.Location = types.Ref(r.int32())
			unpackBits(r.byte(), &cr.Hostile, &cr.Seen, &cr.Group)
			cr.Counter = r.int32()
		}
	}

	for i := range w.Strings {
		w.Strings[i] = strings.TrimRight(string(r.next(state.StringLen)), "\x00")
		if j := strings.IndexByte(w.Strings[i], 0); j >= 0 {
			w.Strings[i] = w.Strings[i][:j]
		}
	}

	if hasOverlay(d) {
		for i := range w.ObjFlags {
			r.bits(w.ObjFlags[i])
			for j := range w.ObjProps[i] {
				w.ObjProps[i][j] = r.int32()
			}
		}
	}

	if !d.IsRoom(w.Loc) && w.Loc != types.Nowhere {
		log.Warningf("restored location %d is not a room, using start", w.Loc)
		w.Loc = d.Game.Start
	}
	w.Rebuild()
	w.ComputeScope()
	log.Debug("state restored", "turns", w.Turns, "score", w.Score, "stale", stale)
	return nil
}

func appendInt32(b []byte, v int) []byte {
	return binary.LittleEndian.AppendUint32(b, uint32(int32(v)))
}

func appendBits(b []byte, bits []bool) []byte {
	out := make([]byte, bitsetSize(len(bits)))
	for i, on := range bits {
		if on {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return append(b, out...)
}

func packBits(bits ...bool) byte {
	var v byte
	for i, on := range bits {
		if on {
			v |= 1 << i
		}
	}
	return v
}

func unpackBits(v byte, bits ...*bool) {
	for i, p := range bits {
		*p = v&(1<<i) != 0
	}
}

// reader walks a block whose size was already validated.
type reader struct {
	b   []byte
	off int
}

func (r *reader) next(n int) []byte {
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) skip(n int) { r.off += n }
func (r *reader) byte() byte { return r.next(1)[0] }
func (r *reader) uint32() uint32 { return binary.LittleEndian.Uint32(r.next(4)) }
func (r *reader) uint64() uint64 { return binary.LittleEndian.Uint64(r.next(8)) }
func (r *reader) int32() int { return int(int32(r.uint32())) }

func (r *reader) bits(dst []bool) {
	p := r.next(bitsetSize(len(dst)))
	for i := range dst {
		dst[i] = p[i/8]&(1<<(i%8)) != 0
	}
}
