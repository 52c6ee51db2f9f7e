package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"fingerprint.gateman.io/entities"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	filePrefix      = "fingerprint_"
	fileSuffix      = ".cbor.zst"
	tombstonePrefix = "tombstone_"
	tombstoneSuffix = ".del"
)

var (
	encMode    cbor.EncMode
	zstdWriter *zstd.Encoder
	zstdReader *zstd.Decoder
	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if zstdWriter, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
		panic(err)
	}
	if zstdReader, err = zstd.NewReader(nil); err != nil {
		panic(err)
	}
}

func encodeRecord(rec entities.FingerprintTemplate) ([]byte, error) {
	raw, err := encMode.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return zstdWriter.EncodeAll(raw, nil), nil
}

func decodeRecord(data []byte) (entities.FingerprintTemplate, error) {
	var rec entities.FingerprintTemplate
	raw, err := zstdReader.DecodeAll(data, nil)
	if err != nil {
		return rec, err
	}
	err = cbor.Unmarshal(raw, &rec)
	return rec, err
}

func fileName(staffID string, unix int64, n int) string {
	return fmt.Sprintf("%s%s_%d_%d%s", filePrefix, unsafeName.ReplaceAllString(staffID, "_"), unix, n, fileSuffix)
}

// tombstoneName marks a subject whose remote copies still have to be deleted.
// The file body holds the raw staff id.
func tombstoneName(staffID string) string {
	return tombstonePrefix + unsafeName.ReplaceAllString(staffID, "_") + tombstoneSuffix
}

// writeFile replaces path through a temp file so readers never see a torn
// record.
func writeFile(path string, rec entities.FingerprintTemplate) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return writeBytes(path, data)
}

func writeBytes(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filePrefix)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
