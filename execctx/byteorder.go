package execctx

import "encoding/binary"

// byteOrder is little-endian only; the traceback ring's raw uint32
// entries never cross a process boundary, so there's no need to detect
// or support a big-endian host.
var byteOrder = binary.LittleEndian
