package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parklane/internal/domain"
)

func shadeJPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func writeStreamPart(w io.Writer, frame []byte) error {
	if _, err := io.WriteString(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// Отмена контекста открытия не должна обрывать уже установленный поток:
// его время жизни заканчивается только по Close
func TestMJPEGSource_SurvivesOpenContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		flusher := w.(http.Flusher)
		for shade := 0; ; shade++ {
			if err := writeStreamPart(w, shadeJPEG(t, uint8(shade*9))); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL)
	openCtx, cancelOpen := context.WithCancel(context.Background())
	require.NoError(t, src.Open(openCtx))
	defer func() { require.NoError(t, src.Close()) }()

	select {
	case <-src.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("first frame never arrived")
	}
	cancelOpen()

	first, err := src.Grab(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		frame, err := src.Grab(context.Background())
		return err == nil && !bytes.Equal(frame.Data, first.Data)
	}, 2*time.Second, 10*time.Millisecond, "frames must keep updating after the open context is cancelled")
}

// Обрыв потока камерой переводит Grab в ошибку вместо выдачи устаревшего
// кадра, а фоновый читатель переподключается сам
func TestMJPEGSource_ReconnectsAfterStreamDrop(t *testing.T) {
	staleFrame := shadeJPEG(t, 0)
	freshFrame := shadeJPEG(t, 128)

	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		flusher := w.(http.Flusher)

		if n == 1 {
			// Первое соединение умирает после единственного кадра
			_ = writeStreamPart(w, staleFrame)
			flusher.Flush()
			return
		}
		for {
			if err := writeStreamPart(w, freshFrame); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL)
	require.NoError(t, src.Open(context.Background()))
	defer func() { require.NoError(t, src.Close()) }()

	select {
	case <-src.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("first frame never arrived")
	}

	require.Eventually(t, func() bool {
		_, err := src.Grab(context.Background())
		return errors.Is(err, domain.ErrSourceNotReady)
	}, 2*time.Second, 5*time.Millisecond, "a dead stream must not keep serving its last frame")

	require.Eventually(t, func() bool {
		frame, err := src.Grab(context.Background())
		return err == nil && bytes.Equal(frame.Data, freshFrame)
	}, 5*time.Second, 20*time.Millisecond, "reader must reconnect after the camera drops the stream")
	require.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestMJPEGSource_CloseIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		flusher := w.(http.Flusher)
		_ = writeStreamPart(w, shadeJPEG(t, 42))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL)
	require.NoError(t, src.Open(context.Background()))
	<-src.Ready()

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err := src.Grab(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceClosed)
}
