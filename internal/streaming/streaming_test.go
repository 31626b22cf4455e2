package streaming

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct {
	videos     map[uuid.UUID]db.Video
	renditions map[uuid.UUID][]db.Rendition
	err        error
}

func (f *fakeQueries) GetVideo(_ context.Context, id uuid.UUID) (db.Video, error) {
	if f.err != nil {
		return db.Video{}, f.err
	}
	v, ok := f.videos[id]
	if !ok {
		return db.Video{}, db.ErrNotFound
	}
	return v, nil
}

func (f *fakeQueries) ListRenditions(_ context.Context, id uuid.UUID) ([]db.Rendition, error) {
	return f.renditions[id], nil
}

func rendition(quality string, height, bitrate int32) db.Rendition {
	return db.Rendition{ID: uuid.New(), Quality: quality, Height: height, Bitrate: bitrate}
}

func setup(t *testing.T, qualities ...string) (*Service, uuid.UUID, *storage.MemoryStorage) {
	t.Helper()
	id := uuid.New()
	q := &fakeQueries{
		videos:     map[uuid.UUID]db.Video{id: {ID: id, Status: db.VideoStatusCompleted}},
		renditions: map[uuid.UUID][]db.Rendition{},
	}
	store := storage.NewMemoryStorage()

	heights := map[string]int32{"360p": 360, "480p": 480, "720p": 720, "1080p": 1080}
	bitrates := map[string]int32{"360p": 864, "480p": 1596, "720p": 3128, "1080p": 5192}
	data := bytes.Repeat([]byte("0123456789"), 100)
	for _, quality := range qualities {
		r := rendition(quality, heights[quality], bitrates[quality])
		r.VideoID = id
		r.StorageKey = "videos/" + id.String() + "/" + quality + ".mp4"
		q.renditions[id] = append(q.renditions[id], r)
		require.NoError(t, store.Upload(context.Background(), r.StorageKey, bytes.NewReader(data), "video/mp4", int64(len(data))))
	}
	return NewService(q, store), id, store
}

func readAll(t *testing.T, info *StreamInfo) []byte {
	t.Helper()
	defer info.Body.Close()
	b, err := io.ReadAll(info.Body)
	require.NoError(t, err)
	return b
}

func TestStreamVideo_FullContent(t *testing.T) {
	svc, id, _ := setup(t, "360p")

	info, err := svc.StreamVideo(context.Background(), id, "", 0, "")
	require.NoError(t, err)
	assert.False(t, info.Partial)
	assert.Len(t, readAll(t, info), 1000)

	resp := GetStreamResponse(info)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", resp.Headers.Get("Content-Length"))
	assert.Equal(t, "bytes", resp.Headers.Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", resp.Headers.Get("Content-Type"))
	assert.Equal(t, "360p", resp.Headers.Get("X-Video-Quality"))
	assert.Empty(t, resp.Headers.Get("Content-Range"))
}

func TestStreamVideo_Range(t *testing.T) {
	svc, id, _ := setup(t, "360p")

	info, err := svc.StreamVideo(context.Background(), id, "", 0, "bytes=100-199")
	require.NoError(t, err)

	body := readAll(t, info)
	assert.Len(t, body, 100)
	assert.Equal(t, "0123456789", string(body[:10]))

	resp := GetStreamResponse(info)
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 100-199/1000", resp.Headers.Get("Content-Range"))
	assert.Equal(t, "100", resp.Headers.Get("Content-Length"))
}

func TestStreamVideo_RangeNotSatisfiable(t *testing.T) {
	svc, id, _ := setup(t, "360p")

	_, err := svc.StreamVideo(context.Background(), id, "", 0, "bytes=2000-")
	require.ErrorIs(t, err, ErrRangeNotSatisfiable)

	cr, ok := UnsatisfiableContentRange(err)
	require.True(t, ok)
	assert.Equal(t, "bytes */1000", cr)
}

func TestStreamVideo_QualityNotFound(t *testing.T) {
	svc, id, _ := setup(t, "360p", "480p")

	_, err := svc.StreamVideo(context.Background(), id, "1080p", 0, "")
	assert.ErrorIs(t, err, ErrQualityNotFound)
}

func TestStreamVideo_VideoNotFound(t *testing.T) {
	svc, _, _ := setup(t, "360p")
	_, err := svc.StreamVideo(context.Background(), uuid.New(), "", 0, "")
	assert.ErrorIs(t, err, ErrVideoNotFound)

}

func TestStreamVideo_NoRenditions(t *testing.T) {
	empty, id, _ := setup(t)
	_, err := empty.StreamVideo(context.Background(), id, "", 0, "")
	assert.ErrorIs(t, err, ErrVideoNotReady)
	assert.NotErrorIs(t, err, ErrVideoNotFound)
}

func TestStreamVideo_MissingObject(t *testing.T) {
	svc, id, store := setup(t, "360p")
	require.NoError(t, store.Delete(context.Background(), "videos/"+id.String()+"/360p.mp4"))

	_, err := svc.StreamVideo(context.Background(), id, "", 0, "")
	assert.ErrorIs(t, err, ErrQualityNotFound)
}

func TestStreamVideo_StoreError(t *testing.T) {
	svc, id, _ := setup(t, "360p")
	svc.queries.(*fakeQueries).err = errors.New("db down")

	_, err := svc.StreamVideo(context.Background(), id, "", 0, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVideoNotFound)
}

func TestStreamVideo_DefaultsToHighest(t *testing.T) {
	svc, id, _ := setup(t, "360p", "480p", "720p")

	info, err := svc.StreamVideo(context.Background(), id, "", 0, "")
	require.NoError(t, err)
	defer info.Body.Close()
	assert.Equal(t, "720p", info.Quality)
}

func TestSelectQuality(t *testing.T) {
	ladder := []db.Rendition{
		rendition("720p", 720, 3128),
		rendition("360p", 360, 864),
		rendition("1080p", 1080, 5192),
		rendition("480p", 480, 1596),
	}

	tests := []struct {
		name      string
		requested string
		speed     int
		want      string
		wantErr   error
	}{
		{"highest by default", "", 0, "1080p", nil},
		{"explicit", "480p", 0, "480p", nil},
		{"explicit ignores speed", "1080p", 100, "1080p", nil},
		{"explicit missing", "4k", 0, "", ErrQualityNotFound},
		{"speed fits 720p", "", 4000, "720p", nil},
		{"speed fits 1080p", "", 6500, "1080p", nil},
		{"speed fits 360p", "", 1100, "360p", nil},
		{"speed too low falls back to lowest", "", 500, "360p", nil},
		{"negative speed ignored", "", -1, "1080p", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectQuality(ladder, tt.requested, tt.speed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Quality)
		})
	}

	_, err := SelectQuality(nil, "", 0)
	assert.ErrorIs(t, err, ErrVideoNotReady)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header      string
		size        int64
		want        ByteRange
		partial     bool
		wantErr     error
		wantUnsatis bool
	}{
		{"", 1000, ByteRange{0, 999}, false, nil, false},
		{"bytes=0-0", 1000, ByteRange{0, 0}, true, nil, false},
		{"bytes=100-199", 1000, ByteRange{100, 199}, true, nil, false},
		{"bytes=500-", 1000, ByteRange{500, 999}, true, nil, false},
		{"bytes=900-5000", 1000, ByteRange{900, 999}, true, nil, false},
		{"bytes=-100", 1000, ByteRange{900, 999}, true, nil, false},
		{"bytes=-5000", 1000, ByteRange{0, 999}, true, nil, false},
		{" bytes = 1-2", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=1000-", 1000, ByteRange{}, false, ErrRangeNotSatisfiable, true},
		{"bytes=2000-3000", 1000, ByteRange{}, false, ErrRangeNotSatisfiable, true},
		{"bytes=-0", 1000, ByteRange{}, false, ErrRangeNotSatisfiable, true},
		{"bytes=0-", 0, ByteRange{}, false, ErrRangeNotSatisfiable, true},
		{"bytes=0-1,5-6", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"items=0-1", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=abc-", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=10-5", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=5", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=-", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=-1-2", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=+100-199", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=100-+199", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=-+100", 1000, ByteRange{}, false, ErrInvalidRange, false},
		{"bytes=1_000-", 2000, ByteRange{}, false, ErrInvalidRange, false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, partial, err := ParseRange(tt.header, tt.size)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				_, unsatis := UnsatisfiableContentRange(err)
				assert.Equal(t, tt.wantUnsatis, unsatis)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.partial, partial)
		})
	}
}
