package core

import (
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Serializers for the stored records. Field order is the wire order; append
// new fields at the end.
var (
	IDMUS         = idMUS{}
	DocumentMUS   = documentMUS{}
	ChunkMUS      = chunkMUS{}
	CallMUS       = callMUS{}
	CheckpointMUS = checkpointMUS{}

	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
)

var (
	_ mus.Serializer[ID]         = IDMUS
	_ mus.Serializer[Document]   = DocumentMUS
	_ mus.Serializer[Chunk]      = ChunkMUS
	_ mus.Serializer[Call]       = CallMUS
	_ mus.Serializer[Checkpoint] = CheckpointMUS
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.MimeType, bs[n:])
	n += varint.Int64.Marshal(v.ByteSize, bs[n:])
	n += varint.Int.Marshal(v.PageCount, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += ord.String.Marshal(v.LastModified, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.InsertedAt, bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.MimeType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ByteSize, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PageCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceURL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastModified, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.MimeType)
	size += varint.Int64.Size(v.ByteSize)
	size += varint.Int.Size(v.PageCount)
	size += ord.String.Size(v.ContentHash)
	size += ord.String.Size(v.SourceURL)
	size += ord.String.Size(v.LastModified)
	return size + raw.TimeUnixMicroUTC.Size(v.InsertedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(v.PageNumber, bs[n:])
	n += varint.Int.Marshal(v.Ordinal, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.Bool.Marshal(v.IsTable, bs[n:])
	n += ord.String.Marshal(v.SectionTitle, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.InsertedAt, bs[n:])
	return
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PageNumber, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IsTable, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SectionTitle, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.PageNumber)
	size += varint.Int.Size(v.Ordinal)
	size += ord.String.Size(v.Text)
	size += ord.Bool.Size(v.IsTable)
	size += ord.String.Size(v.SectionTitle)
	size += vectorMUS.Size(v.Vector)
	return size + raw.TimeUnixMicroUTC.Size(v.InsertedAt)
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type callMUS struct{}

func (s callMUS) Marshal(v Call, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(v.Organism, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.InsertedAt, bs[n:])
	return
}

func (s callMUS) Unmarshal(bs []byte) (v Call, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.URL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Organism, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s callMUS) Size(v Call) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.URL)
	size += ord.String.Size(v.Organism)
	return size + raw.TimeUnixMicroUTC.Size(v.InsertedAt)
}

func (s callMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += IDMUS.Marshal(v.LastID, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	var n1 int
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.LastID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += IDMUS.Size(v.LastID)
	return size + raw.TimeUnixMicroUTC.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
