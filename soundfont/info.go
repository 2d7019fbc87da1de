package soundfont

import (
	"bufio"
	"encoding/binary"
	"io"
	"strings"
)

// Info holds the bank-level metadata carried in the INFO LIST chunk. Only
// ifil (version) is required by this loader; the rest are cosmetic and are
// kept only for completeness/introspection.
type Info struct {
	VersionMajor, VersionMinor uint16
	Engine                     string
	Name                       string
	ROM                        string
	ROMVersionMajor            uint16
	ROMVersionMinor            uint16
	CreationDate               string
	Engineers                  string
	Product                    string
	Copyright                  string
	Comments                   string
	Software                   string
}

func readInfo(r io.Reader) (*Info, error) {
	info := &Info{}
	br := bufio.NewReader(r)
	for {
		var ck chunk
		if err := ck.parse(br); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch string(ck.id[:]) {
		case "ifil":
			cr := ck.reader()
			if err := binary.Read(cr, binary.LittleEndian, &info.VersionMajor); err != nil {
				return nil, err
			}
			if err := binary.Read(cr, binary.LittleEndian, &info.VersionMinor); err != nil {
				return nil, err
			}
		case "isng":
			info.Engine = cstring(ck.data)
		case "INAM":
			info.Name = cstring(ck.data)
		case "irom":
			info.ROM = cstring(ck.data)
		case "iver":
			cr := ck.reader()
			binary.Read(cr, binary.LittleEndian, &info.ROMVersionMajor)
			binary.Read(cr, binary.LittleEndian, &info.ROMVersionMinor)
		case "ICRD":
			info.CreationDate = cstring(ck.data)
		case "IENG":
			info.Engineers = cstring(ck.data)
		case "IPRD":
			info.Product = cstring(ck.data)
		case "ICOP":
			info.Copyright = cstring(ck.data)
		case "ICMT":
			info.Comments = cstring(ck.data)
		case "ISFT":
			info.Software = cstring(ck.data)
		default:
			// Unknown INFO sub-chunks are legal (future spec revisions,
			// vendor extensions) and are simply ignored.
		}
	}
	return info, nil
}

// cstring trims the trailing NUL padding RIFF string fields carry to keep
// their total length even.
func cstring(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
