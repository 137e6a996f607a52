package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/mirarav/convocatorias/core"
)

// Record prefixes end in ':' so that one prefix never matches another.
const (
	documentPrefix     = "doc:"
	documentHashPrefix = "dochash:"
	chunkPrefix        = "chunk:"
	chunkDocPrefix     = "chunkdoc:"
	chunkIDSeq         = "chunkseq"
	callPrefix         = "call:"
	callURLPrefix      = "callurl:"
	callDocPrefix      = "calldoc:"
	callIDSeq          = "callseq"
	checkpointPrefix   = "chkpt:"
)

// makeIDKey builds prefix + big-endian id so keys iterate in ID order.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePairKey builds prefix + big-endian parent + big-endian child.
func makePairKey(prefix string, parent, child core.ID) []byte {
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(parent))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(child))
	return buf
}

// childFromPairKey returns the trailing ID of a pair key.
func childFromPairKey(key []byte) (core.ID, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("pair key too short: %d bytes", len(key))
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:])), nil
}

func makeDocumentKey(id core.ID) []byte {
	return makeIDKey(documentPrefix, id)
}

func makeDocumentHashKey(hash string) []byte {
	return []byte(documentHashPrefix + hash)
}

func makeChunkKey(id core.ID) []byte {
	return makeIDKey(chunkPrefix, id)
}

func makeChunkDocKey(documentID, chunkID core.ID) []byte {
	return makePairKey(chunkDocPrefix, documentID, chunkID)
}

func makePartialChunkDocKey(documentID core.ID) []byte {
	return makeIDKey(chunkDocPrefix, documentID)
}

func makeCallKey(id core.ID) []byte {
	return makeIDKey(callPrefix, id)
}

func makeCallURLKey(url string) []byte {
	return []byte(callURLPrefix + url)
}

func makeCallDocKey(callID, documentID core.ID) []byte {
	return makePairKey(callDocPrefix, callID, documentID)
}

func makePartialCallDocKey(callID core.ID) []byte {
	return makeIDKey(callDocPrefix, callID)
}

func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
