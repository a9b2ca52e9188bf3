package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/corpora/core"
)

// Key prefixes for different data types
const (
	kbRecordPrefix     = "kbrec"
	kbNamePrefix       = "kbname"
	kbIDSeq            = "kbrecseq"
	docRecordPrefix    = "docrec"
	docNamePrefix      = "docname"
	docHashPrefix      = "dochash"
	docIDSeq           = "docrecseq"
	chunkRecordPrefix  = "chkrec"
	chunkDocPrefix     = "chkdoc"
	chunkKBPrefix      = "chkkb"
	chunkIDSeq         = "chkrecseq"
	vectorRecordPrefix = "vecrec"
)

// makeKBKey generates a key for a knowledge base by ID.
func makeKBKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", kbRecordPrefix, id))
}

// makeKBNameKey generates a composite key for the owner+name index.
// Format: prefix:ownerID:name
func makeKBNameKey(ownerId core.ID, name string) []byte {
	prefix := []byte(kbNamePrefix + ":")
	buf := make([]byte, len(prefix)+8+len(name))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(ownerId))
	offset += 8
	copy(buf[offset:], name)
	return buf
}

// makePartialKBNameKey generates a partial key for listing an owner's
// knowledge bases.
func makePartialKBNameKey(ownerId core.ID) []byte {
	prefix := []byte(kbNamePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ownerId))
	return buf
}

// makeDocKey generates a key for a document by ID.
func makeDocKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", docRecordPrefix, id))
}

// makeDocNameKey generates a composite key for the filename index.
// Format: prefix:kbID:filename
func makeDocNameKey(kbId core.ID, filename string) []byte {
	prefix := []byte(docNamePrefix + ":")
	buf := make([]byte, len(prefix)+8+len(filename))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(kbId))
	offset += 8
	copy(buf[offset:], filename)
	return buf
}

// makeDocHashKey generates a composite key for the content hash index.
// Format: prefix:kbID:hash
func makeDocHashKey(kbId core.ID, hash string) []byte {
	prefix := []byte(docHashPrefix + ":")
	buf := make([]byte, len(prefix)+8+len(hash))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(kbId))
	offset += 8
	copy(buf[offset:], hash)
	return buf
}

// makePartialDocNameKey generates a partial key for listing a knowledge
// base's documents.
func makePartialDocNameKey(kbId core.ID) []byte {
	prefix := []byte(docNamePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(kbId))
	return buf
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocKey generates a composite key for the document index.
// Format: prefix:docID:chunkIndex
// ChunkIndex in BigEndian keeps document order under lexicographic
// iteration.
func makeChunkDocKey(docId core.ID, chunkIndex int) []byte {
	prefix := []byte(chunkDocPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docId))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	return buf
}

// makePartialChunkDocKey generates a partial key for a document's chunks.
func makePartialChunkDocKey(docId core.ID) []byte {
	prefix := []byte(chunkDocPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docId))
	return buf
}

// makeChunkKBKey generates a composite key for the knowledge base index.
// Format: prefix:kbID:chunkID
func makeChunkKBKey(kbId, chunkId core.ID) []byte {
	prefix := []byte(chunkKBPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(kbId))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkId))
	return buf
}

// makePartialChunkKBKey generates a partial key for a knowledge base's
// chunks.
func makePartialChunkKBKey(kbId core.ID) []byte {
	prefix := []byte(chunkKBPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(kbId))
	return buf
}

// makeVectorKey generates a key for a chunk's vector entry.
func makeVectorKey(chunkId core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", vectorRecordPrefix, chunkId))
}
