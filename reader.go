package stripclust

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// RecordSize is the size in bytes of one digi record:
// detId u32, stripId u16, adc u16, noise f32, gain f32, bad u8.
const RecordSize = 4 + 2 + 2 + 4 + 4 + 1

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ReadDigis appends records from r to store until the stream is exhausted.
// A trailing partial record is discarded. It returns the number of strips
// appended. Running out of capacity is a capacity error; the strips read so
// far stay in the store.
func ReadDigis(r io.Reader, store *StripStore) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var rec [RecordSize]byte
	n := 0
	for {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return n, nil
			}
			return n, NewInputError("ReadDigis", fmt.Sprintf("record %d", n), err)
		}
		if err := store.Append(decodeRecord(rec[:])); err != nil {
			return n, err
		}
		n++
	}
}

func decodeRecord(b []byte) Strip {
	le := binary.LittleEndian
	return Strip{
		DetID:   le.Uint32(b[0:4]),
		StripID: le.Uint16(b[4:6]),
		ADC:     le.Uint16(b[6:8]),
		Noise:   math.Float32frombits(le.Uint32(b[8:12])),
		Gain:    math.Float32frombits(le.Uint32(b[12:16])),
		Bad:     b[16] != 0,
	}
}

func encodeRecord(b []byte, s Strip) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], s.DetID)
	le.PutUint16(b[4:6], s.StripID)
	le.PutUint16(b[6:8], s.ADC)
	le.PutUint32(b[8:12], math.Float32bits(s.Noise))
	le.PutUint32(b[12:16], math.Float32bits(s.Gain))
	b[16] = 0
	if s.Bad {
		b[16] = 1
	}
}

// WriteDigis writes every strip of store in the digi record format.
func WriteDigis(w io.Writer, store *StripStore) error {
	bw := bufio.NewWriter(w)
	var rec [RecordSize]byte
	for i := 0; i < store.Len(); i++ {
		encodeRecord(rec[:], store.At(i))
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadDigiFile reads a digi file into store. zstd-compressed files are
// detected by their frame magic and decompressed transparently.
func ReadDigiFile(path string, store *StripStore) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, NewInputError("ReadDigiFile", "open "+path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, NewInputError("ReadDigiFile", "read "+path, err)
	}
	if !bytes.Equal(head, zstdMagic) {
		return ReadDigis(br, store)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return 0, NewInputError("ReadDigiFile", "zstd "+path, err)
	}
	defer dec.Close()
	n, err := ReadDigis(dec, store)
	if err != nil && !IsCapacityError(err) && !IsInputError(err) {
		err = NewInputError("ReadDigiFile", "decompress "+path, err)
	}
	return n, err
}

// WriteDigiFile writes store to path, zstd-compressing when compress is set.
func WriteDigiFile(path string, store *StripStore, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !compress {
		return WriteDigis(f, store)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := WriteDigis(enc, store); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Ingest reads a digi file into a new store sized by cfg.MaxStrips and
// checks the per-detector ordering the clustering stages depend on.
func Ingest(path string, cfg Config) (*StripStore, error) {
	store := NewStripStore(cfg.MaxStrips)
	n, err := ReadDigiFile(path, store)
	if err != nil {
		return nil, err
	}
	if err := store.CheckOrdering(); err != nil {
		return nil, err
	}

	log := cfg.logger()
	for i := 0; i < store.Len(); i++ {
		if store.Bad[i] {
			s := store.At(i)
			log.WithFields(logrus.Fields{
				"index": i, "det_id": s.DetID, "strip_id": s.StripID,
				"adc": s.ADC, "noise": s.Noise, "gain": s.Gain,
			}).Debug("bad channel")
		}
	}
	log.WithField("strips", n).WithField("file", path).Info("digis loaded")
	return store, nil
}
