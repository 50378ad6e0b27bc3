package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ByteSize 接受 "10KiB"、"1GB"、"4096" 这类写法
type ByteSize uint64

func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

func (b ByteSize) Int() int       { return int(b) }
func (b ByteSize) Int64() int64   { return int64(b) }
func (b ByteSize) Uint64() uint64 { return uint64(b) }
