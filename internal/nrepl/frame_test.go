package nrepl

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLength(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr error
	}{
		{name: "integer", in: "i42e", want: 4},
		{name: "negative integer", in: "i-3e", want: 4},
		{name: "string", in: "4:spam", want: 6},
		{name: "empty string", in: "0:", want: 2},
		{name: "empty list", in: "le", want: 2},
		{name: "empty dict", in: "de", want: 2},
		{name: "request", in: "d2:op5:clonee", want: 13},
		{name: "trailing input ignored", in: "d2:op5:clonee4:spam", want: 13},
		{name: "nested", in: "d1:ali1ei2ee1:bd1:c0:ee", want: 23},
		{name: "incomplete dict", in: "d2:op5:clo", want: 0},
		{name: "incomplete integer", in: "i42", want: 0},
		{name: "incomplete length", in: "12", want: 0},
		{name: "empty input", in: "", want: 0},
		{name: "unknown type", in: "x", wantErr: ErrMalformedFrame},
		{name: "integer without digits", in: "ie", wantErr: ErrMalformedFrame},
		{name: "bad integer digit", in: "i4x2e", wantErr: ErrMalformedFrame},
		{name: "non-string key", in: "di1ei2ee", wantErr: ErrMalformedFrame},
		{name: "bad length", in: "3x:abc", wantErr: ErrMalformedFrame},
		{name: "length too long", in: "99999999999:", wantErr: ErrMalformedFrame},
		{name: "too deep", in: strings.Repeat("l", 40), wantErr: ErrMalformedFrame},
		{name: "too large", in: "2000000:", wantErr: ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := frameLength([]byte(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestFramerSplitsStream(t *testing.T) {
	stream := "d2:op5:clonee" + "d2:op8:describee"
	f := newFramer(iotest.OneByteReader(strings.NewReader(stream)))

	first, err := f.next()
	require.NoError(t, err)
	assert.Equal(t, "d2:op5:clonee", string(first))

	second, err := f.next()
	require.NoError(t, err)
	assert.Equal(t, "d2:op8:describee", string(second))

	_, err = f.next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, f.buffered())
}

func TestFramerKeepsPartialInputAcrossErrors(t *testing.T) {
	r := iotest.TimeoutReader(strings.NewReader("d2:op5:clonee"))
	f := newFramer(r)
	f.chunk = make([]byte, 5)

	// TimeoutReader fails the second read; the first five bytes stay buffered.
	_, err := f.next()
	require.ErrorIs(t, err, iotest.ErrTimeout)
	assert.Equal(t, 5, f.buffered())

	frame, err := f.next()
	require.NoError(t, err)
	assert.Equal(t, "d2:op5:clonee", string(frame))
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte("d4:code7:(+ 1 2)2:idi7e2:op4:eval7:session1:3e"))
	require.NoError(t, err)
	assert.Equal(t, request{Op: OpEval, ID: 7, Session: 3, Code: "(+ 1 2)"}, req)

	_, err = decodeRequest([]byte("li1ee"))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = decodeRequest([]byte("d2:idi1ee"))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = decodeRequest([]byte("d2:op5:clone7:session3:abce"))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestSessionList(t *testing.T) {
	var s sessionList

	assert.Equal(t, int64(1), s.clone())
	assert.Equal(t, int64(2), s.clone())
	assert.Equal(t, int64(3), s.clone())
	assert.True(t, s.contains(2))

	assert.True(t, s.close(2))
	assert.False(t, s.close(2))
	assert.False(t, s.contains(2))
	assert.Equal(t, []int64{1, 3}, s.list())

	// Ids follow the newest live session, so closing it frees the id.
	assert.True(t, s.close(3))
	assert.Equal(t, int64(2), s.clone())
	assert.Equal(t, []int64{1, 2}, s.list())
}
