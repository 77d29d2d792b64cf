package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/semref/wdsearch/internal/db"
)

// IndexInfo fetches FT.INFO for an index and extracts the vector dimension.
// "unknown index name" maps to db.ErrIndexNotFound.
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	info := &db.IndexInfo{Name: name}
	info.VectorDim = findVectorDim(raw)
	return info, nil
}

// findVectorDim walks the FT.INFO reply looking for a "dim" attribute.
// The reply shape differs between server versions, so the scan is recursive
// and tolerant: any string "dim"/"DIM" followed by an integer wins.
func findVectorDim(msgs []rueidis.RedisMessage) int {
	for i := 0; i < len(msgs); i++ {
		if nested, err := msgs[i].ToArray(); err == nil {
			if dim := findVectorDim(nested); dim > 0 {
				return dim
			}
			continue
		}
		name, err := msgs[i].ToString()
		if err != nil {
			continue
		}
		if (name == "dim" || name == "DIM") && i+1 < len(msgs) {
			if v, err := msgs[i+1].AsInt64(); err == nil && v > 0 {
				return int(v)
			}
			if sv, err := msgs[i+1].ToString(); err == nil {
				if v, err := strconv.Atoi(sv); err == nil && v > 0 {
					return v
				}
			}
		}
	}
	return 0
}
