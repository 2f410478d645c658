package fat16

import (
	"strings"

	"github.com/aligator/fat16/checkpoint"
)

const (
	nameBaseLen = 8
	nameExtLen  = 3
	nameLen     = nameBaseLen + nameExtLen

	// Special values of the first name byte.
	nameEnd     = 0x00 // This entry and all following entries are free.
	nameDeleted = 0xE5 // This entry is free.
	nameE5      = 0x05 // The real first byte is 0xE5.
)

var (
	dotName    = [nameLen]byte{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	dotDotName = [nameLen]byte{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
)

// invalidNameChars may not be part of an 8.3 name.
const invalidNameChars = "\"*+,/:;<=>?[\\]|"

func validNamePart(part string, max int) bool {
	if len(part) > max {
		return false
	}
	for i := 0; i < len(part); i++ {
		c := part[i]
		if c < 0x20 || c == ' ' || strings.IndexByte(invalidNameChars, c) >= 0 {
			return false
		}
	}
	return true
}

// EncodeName converts a name like "hello.txt" into the space padded 11 byte
// form of a directory entry. The case is kept as given.
// A first byte of 0xE5 is stored as 0x05, because 0xE5 marks deleted entries.
func EncodeName(name string) ([nameLen]byte, error) {
	switch name {
	case ".":
		return dotName, nil
	case "..":
		return dotDotName, nil
	}

	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
	}
	if base == "" || !validNamePart(base, nameBaseLen) || !validNamePart(ext, nameExtLen) || strings.Contains(base, ".") {
		return [nameLen]byte{}, checkpoint.Errorf(ErrInvalidName, "%q", name)
	}

	var result [nameLen]byte
	for i := range result {
		result[i] = ' '
	}
	copy(result[:nameBaseLen], base)
	copy(result[nameBaseLen:], ext)

	if result[0] == nameDeleted {
		result[0] = nameE5
	}
	return result, nil
}

// DecodeName converts the 11 byte name of a directory entry back into the
// "name.ext" form. Free entries decode to "".
func DecodeName(raw [nameLen]byte) string {
	switch raw {
	case dotName:
		return "."
	case dotDotName:
		return ".."
	}

	switch raw[0] {
	case nameEnd, nameDeleted:
		return ""
	case nameE5:
		raw[0] = nameDeleted
	}

	name := strings.TrimRight(string(raw[:nameBaseLen]), " ")
	ext := strings.TrimRight(string(raw[nameBaseLen:]), " ")
	if ext != "" {
		name += "." + ext
	}
	return name
}

// equalName compares two encoded names ignoring ASCII case.
func equalName(a, b [nameLen]byte) bool {
	for i := range a {
		if upper(a[i]) != upper(b[i]) {
			return false
		}
	}
	return true
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
