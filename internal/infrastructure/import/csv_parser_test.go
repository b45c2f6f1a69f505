package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("header, comments and blank lines", func(t *testing.T) {
		text := "orderNo,carrierCode,trackingNo\r\n# carriers: cj, lotte\n\n naver_1001,cj,1234-5678 \n20240101-0000001;lotte;9876\n"
		sheet, err := Parse([]byte(text))

		require.NoError(t, err)
		assert.True(t, sheet.HasHeader)
		assert.Equal(t, []string{"orderNo", "carrierCode", "trackingNo"}, sheet.Header)
		require.Len(t, sheet.Lines, 2)
		assert.Equal(t, Line{Number: 2, Cells: []string{"naver_1001", "cj", "1234-5678"}}, sheet.Lines[0])
		assert.Equal(t, Line{Number: 3, Cells: []string{"20240101-0000001", "lotte", "9876"}}, sheet.Lines[1])
	})

	t.Run("lettered first line is a header", func(t *testing.T) {
		sheet, err := Parse([]byte("ORD-1,cj,1234567890\nORD-2,cj,222\n"))

		require.NoError(t, err)
		assert.True(t, sheet.HasHeader)
		assert.Equal(t, []string{"ORD-1", "cj", "1234567890"}, sheet.Header)
		require.Len(t, sheet.Lines, 1)
		assert.Equal(t, Line{Number: 2, Cells: []string{"ORD-2", "cj", "222"}}, sheet.Lines[0])
	})

	t.Run("numeric rows keep their numbering without a header", func(t *testing.T) {
		sheet, err := Parse([]byte("1001,0004,1234567890\n1002,0004,555"))

		require.NoError(t, err)
		assert.False(t, sheet.HasHeader)
		require.Len(t, sheet.Lines, 2)
		assert.Equal(t, 1, sheet.Lines[0].Number)
		assert.Equal(t, 2, sheet.Lines[1].Number)
	})

	t.Run("Korean header", func(t *testing.T) {
		sheet, err := Parse([]byte("주문번호\t택배사코드\t송장번호\n1001\tcj\t111"))

		require.NoError(t, err)
		assert.True(t, sheet.HasHeader)
		assert.Equal(t, []string{"1001", "cj", "111"}, sheet.Lines[0].Cells)
	})

	t.Run("numeric first line is data", func(t *testing.T) {
		sheet, err := Parse([]byte("1001,0004,111"))

		require.NoError(t, err)
		assert.False(t, sheet.HasHeader)
	})

	t.Run("BOM is stripped", func(t *testing.T) {
		sheet, err := Parse([]byte("\xEF\xBB\xBForderNo,carrier,tracking\n1,cj,2"))

		require.NoError(t, err)
		assert.Equal(t, "orderNo", sheet.Header[0])
	})

	t.Run("full-width digits fold to ASCII", func(t *testing.T) {
		sheet, err := Parse([]byte("주문번호,택배사,송장번호\n１００１,cj,１２３"))

		require.NoError(t, err)
		assert.Equal(t, []string{"1001", "cj", "123"}, sheet.Lines[0].Cells)
	})

	t.Run("empty and comment-only files", func(t *testing.T) {
		_, err := Parse([]byte("\n \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = Parse([]byte("# only a comment\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, err := Parse([]byte{0xff, 0xfe, 0x41})
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Parse([]byte(strings.Repeat("a", 20)), WithMaxSize(10))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a\tb\tc", '\t'},
		{"a;b;c", ';'},
		{"a;b;c,d", ';'},
		{"a;b,c", ','},
		{"a\tb;c", '\t'},
		{"a;b\tc", '\t'},
		{"abc", ','},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter(tt.line))
		})
	}
}

func TestSplitLine(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitLine(" a , b ,c ", ','))
	assert.Equal(t, []string{"x,y", `say "hi"`, "3"}, SplitLine(`"x,y","say ""hi""",3`, ','))
	assert.Equal(t, []string{"a", "b"}, SplitLine("a;b", ';'))
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader([]string{"orderNo", "carrier", "tracking"}))
	assert.True(t, IsHeader([]string{"주문번호", "택배사", "송장번호"}))
	assert.False(t, IsHeader([]string{"1001", "0004", "111"}))
	assert.True(t, IsHeader([]string{"naver_1", "cj", "123-456"}))
	assert.True(t, IsHeader([]string{"order"}))
	assert.False(t, IsHeader([]string{"", "123-456"}))
}

func TestLooksLikeTrackingNo(t *testing.T) {
	assert.True(t, LooksLikeTrackingNo("1234-5678"))
	assert.True(t, LooksLikeTrackingNo("1234 5678"))
	assert.True(t, LooksLikeTrackingNo("---"))
	assert.False(t, LooksLikeTrackingNo("12AB"))
	assert.False(t, LooksLikeTrackingNo(""))
}

func TestStripSpaces(t *testing.T) {
	assert.Equal(t, "12345678", StripSpaces(" 1234 \t5678 "))
}
