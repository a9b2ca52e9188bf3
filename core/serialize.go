package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored record types. Hand-written in the
// generated style: one stateless serializer value per type, field order is
// the wire format and must not change without bumping storage versions.
var (
	IDMUS            = idMUS{}
	DocumentMUS      = documentMUS{}
	ChunkMUS         = chunkMUS{}
	VectorEntryMUS   = vectorEntryMUS{}
	KnowledgeBaseMUS = knowledgeBaseMUS{}

	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
)

var (
	_ mus.Serializer[ID]            = IDMUS
	_ mus.Serializer[Document]      = DocumentMUS
	_ mus.Serializer[Chunk]         = ChunkMUS
	_ mus.Serializer[VectorEntry]   = VectorEntryMUS
	_ mus.Serializer[KnowledgeBase] = KnowledgeBaseMUS
)

// Timestamps are stored as Unix microseconds.

func marshalTime(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	t = time.UnixMicro(micros).UTC()
	return
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.KnowledgeBaseId, bs[n:])
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += ord.Bool.Marshal(v.Processed, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.KnowledgeBaseId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Size, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Processed, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.KnowledgeBaseId)
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.ContentHash)
	size += varint.Int64.Size(v.Size)
	size += ord.Bool.Size(v.Processed)
	size += varint.Int.Size(v.ChunkCount)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += IDMUS.Marshal(v.KnowledgeBaseId, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(v.StartOffset, bs[n:])
	n += varint.Int.Marshal(v.EndOffset, bs[n:])
	n += ord.String.Marshal(v.Metadata.Strategy, bs[n:])
	n += varint.Int.Marshal(v.Metadata.Level, bs[n:])
	n += IDMUS.Marshal(v.Metadata.ParentId, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.KnowledgeBaseId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.StartOffset, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EndOffset, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata.Strategy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata.Level, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata.ParentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += IDMUS.Size(v.KnowledgeBaseId)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.ChunkIndex)
	size += varint.Int.Size(v.StartOffset)
	size += varint.Int.Size(v.EndOffset)
	size += ord.String.Size(v.Metadata.Strategy)
	size += varint.Int.Size(v.Metadata.Level)
	size += IDMUS.Size(v.Metadata.ParentId)
	size += sizeTime(v.InsertedAt)
	return
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type vectorEntryMUS struct{}

func (s vectorEntryMUS) Marshal(v VectorEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkId, bs)
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.ModelId, bs[n:])
	n += varint.Int.Marshal(v.Version, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return
}

func (s vectorEntryMUS) Unmarshal(bs []byte) (v VectorEntry, n int, err error) {
	var n1 int
	if v.ChunkId, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ModelId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Version, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s vectorEntryMUS) Size(v VectorEntry) (size int) {
	size = IDMUS.Size(v.ChunkId)
	size += vectorMUS.Size(v.Vector)
	size += ord.String.Size(v.ModelId)
	size += varint.Int.Size(v.Version)
	size += sizeTime(v.InsertedAt)
	return
}

func (s vectorEntryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type knowledgeBaseMUS struct{}

func (s knowledgeBaseMUS) Marshal(v KnowledgeBase, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += s.marshalConfig(v.Config, bs[n:])
	n += varint.Int.Marshal(v.DocumentCount, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (s knowledgeBaseMUS) Unmarshal(bs []byte) (v KnowledgeBase, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Config, n1, err = s.unmarshalConfig(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DocumentCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s knowledgeBaseMUS) Size(v KnowledgeBase) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OwnerId)
	size += ord.String.Size(v.Name)
	size += s.sizeConfig(v.Config)
	size += varint.Int.Size(v.DocumentCount)
	size += varint.Int.Size(v.ChunkCount)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return
}

func (s knowledgeBaseMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

func (knowledgeBaseMUS) marshalConfig(c WorkflowConfig, bs []byte) (n int) {
	n = ord.String.Marshal(c.Chunking.Strategy, bs)
	n += ord.String.Marshal(c.Chunking.Separator, bs[n:])
	n += varint.Int.Marshal(c.Chunking.MaxLength, bs[n:])
	n += varint.Int.Marshal(c.Chunking.OverlapLength, bs[n:])
	n += ord.Bool.Marshal(c.Chunking.Preprocessing.RemoveExtraWhitespace, bs[n:])
	n += ord.Bool.Marshal(c.Chunking.Preprocessing.RemoveURLs, bs[n:])
	n += ord.Bool.Marshal(c.Chunking.Preprocessing.RemoveEmails, bs[n:])
	n += ord.Bool.Marshal(c.Chunking.Preprocessing.NormalizeUnicode, bs[n:])
	n += ord.String.Marshal(c.Chunking.ParentSeparator, bs[n:])
	n += varint.Int.Marshal(c.Chunking.ParentMaxLength, bs[n:])
	n += ord.String.Marshal(c.Chunking.ChildSeparator, bs[n:])
	n += varint.Int.Marshal(c.Chunking.ChildMaxLength, bs[n:])
	n += ord.String.Marshal(c.Embedding.Strategy, bs[n:])
	n += ord.String.Marshal(c.Embedding.ModelName, bs[n:])
	n += ord.String.Marshal(c.Embedding.Provider, bs[n:])
	n += varint.Int.Marshal(c.Embedding.BatchSize, bs[n:])
	n += ord.String.Marshal(c.Retrieval.Strategy, bs[n:])
	n += varint.Int.Marshal(c.Retrieval.TopK, bs[n:])
	n += raw.Float32.Marshal(c.Retrieval.ScoreThreshold, bs[n:])
	n += ord.Bool.Marshal(c.Retrieval.EnableRerank, bs[n:])
	return
}

func (knowledgeBaseMUS) unmarshalConfig(bs []byte) (c WorkflowConfig, n int, err error) {
	var n1 int
	strs := []*string{
		&c.Chunking.Strategy, &c.Chunking.Separator,
	}
	for _, dst := range strs {
		if *dst, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return c, n + n1, err
		}
		n += n1
	}
	if c.Chunking.MaxLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Chunking.OverlapLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	bools := []*bool{
		&c.Chunking.Preprocessing.RemoveExtraWhitespace,
		&c.Chunking.Preprocessing.RemoveURLs,
		&c.Chunking.Preprocessing.RemoveEmails,
		&c.Chunking.Preprocessing.NormalizeUnicode,
	}
	for _, dst := range bools {
		if *dst, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
			return c, n + n1, err
		}
		n += n1
	}
	if c.Chunking.ParentSeparator, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Chunking.ParentMaxLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Chunking.ChildSeparator, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Chunking.ChildMaxLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Embedding.Strategy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Embedding.ModelName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Embedding.Provider, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Embedding.BatchSize, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Retrieval.Strategy, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Retrieval.TopK, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Retrieval.ScoreThreshold, n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	c.Retrieval.EnableRerank, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (knowledgeBaseMUS) sizeConfig(c WorkflowConfig) (size int) {
	size = ord.String.Size(c.Chunking.Strategy)
	size += ord.String.Size(c.Chunking.Separator)
	size += varint.Int.Size(c.Chunking.MaxLength)
	size += varint.Int.Size(c.Chunking.OverlapLength)
	size += ord.Bool.Size(c.Chunking.Preprocessing.RemoveExtraWhitespace)
	size += ord.Bool.Size(c.Chunking.Preprocessing.RemoveURLs)
	size += ord.Bool.Size(c.Chunking.Preprocessing.RemoveEmails)
	size += ord.Bool.Size(c.Chunking.Preprocessing.NormalizeUnicode)
	size += ord.String.Size(c.Chunking.ParentSeparator)
	size += varint.Int.Size(c.Chunking.ParentMaxLength)
	size += ord.String.Size(c.Chunking.ChildSeparator)
	size += varint.Int.Size(c.Chunking.ChildMaxLength)
	size += ord.String.Size(c.Embedding.Strategy)
	size += ord.String.Size(c.Embedding.ModelName)
	size += ord.String.Size(c.Embedding.Provider)
	size += varint.Int.Size(c.Embedding.BatchSize)
	size += ord.String.Size(c.Retrieval.Strategy)
	size += varint.Int.Size(c.Retrieval.TopK)
	size += raw.Float32.Size(c.Retrieval.ScoreThreshold)
	size += ord.Bool.Size(c.Retrieval.EnableRerank)
	return
}
