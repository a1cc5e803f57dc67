package shell

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single token", in: "uptime", want: []string{"uptime"}},
		{name: "whitespace runs", in: "  python \t index.py\n--fast  ", want: []string{"python", "index.py", "--fast"}},
		{name: "single quotes", in: "echo 'hello world'", want: []string{"echo", "hello world"}},
		{name: "double quotes with escape", in: `echo "line1\nline2"`, want: []string{"echo", "line1\nline2"}},
		{name: "tab and cr escapes", in: `printf "a\tb\rc"`, want: []string{"printf", "a\tb\rc"}},
		{name: "escaped quote in double", in: `echo "say \"hi\""`, want: []string{"echo", `say "hi"`}},
		{name: "backslash literal in single", in: `echo 'a\nb'`, want: []string{"echo", `a\nb`}},
		{name: "escaped space", in: `ls my\ file`, want: []string{"ls", "my file"}},
		{name: "unknown escape verbatim", in: `echo \q\$`, want: []string{"echo", "q$"}},
		{name: "adjacent quoted parts", in: `a'b c'"d e"f`, want: []string{"ab cd ef"}},
		{name: "empty quotes dropped", in: `echo '' x`, want: []string{"echo", "x"}},
		{name: "utf8 in quotes", in: `echo "héllo wörld"`, want: []string{"echo", "héllo wörld"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.in)
			if err != nil {
				t.Fatalf("Split(%q) error: %v", tt.in, err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want error
	}{
		{in: `echo \`, want: ErrDanglingEscape},
		{in: `echo "abc\`, want: ErrDanglingEscape},
		{in: "echo 'oops", want: ErrUnterminatedQuote},
		{in: `echo "oops`, want: ErrUnterminatedQuote},
		{in: "echo \"\xff\xfe\"", want: ErrInvalidUTF8},
		{in: "echo \xff", want: ErrInvalidUTF8},
		{in: "\xff", want: ErrInvalidUTF8},
	}
	for _, tt := range tests {
		got, err := Split(tt.in)
		if !errors.Is(err, tt.want) {
			t.Fatalf("Split(%q) err = %v, want %v (args %q)", tt.in, err, tt.want, got)
		}
		if lenient := SplitOrEmpty(tt.in); len(lenient) != 0 {
			t.Fatalf("SplitOrEmpty(%q) = %q, want empty", tt.in, lenient)
		}
	}
}

func TestFastPathsMatchGeneralPath(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"uptime",
		"python index.py --mode=full",
		"  a\tb\n c  ",
		"/usr/bin/env   FOO=bar   run",
	}
	for _, in := range inputs {
		fast, err := Split(in)
		if err != nil {
			t.Fatalf("Split(%q) error: %v", in, err)
		}
		full, err := splitFull([]byte(in))
		if err != nil {
			t.Fatalf("splitFull(%q) error: %v", in, err)
		}
		if !reflect.DeepEqual(fast, full) {
			t.Fatalf("fast path %q != general path %q for %q", fast, full, in)
		}
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		argv []string
		want string
	}{
		{argv: []string{"python", "etl.py", "--source=internal"}, want: "python etl.py --source=internal"},
		{argv: []string{"echo", "hello world"}, want: `echo "hello world"`},
		{argv: []string{"echo", `say "hi"`}, want: `echo "say \"hi\""`},
		{argv: []string{"echo", ""}, want: `echo ""`},
		{argv: []string{"date", "|", "tee", "$HOME/out"}, want: "date | tee $HOME/out"},
	}
	for _, tt := range tests {
		if got := Join(tt.argv); got != tt.want {
			t.Fatalf("Join(%q) = %q, want %q", tt.argv, got, tt.want)
		}
	}
}

func TestJoinRoundTrip(t *testing.T) {
	t.Parallel()
	argv := []string{"echo", "hello world", `a "quoted" b`, `back\slash`, "it's"}
	got, err := Split(Join(argv))
	if err != nil {
		t.Fatalf("Split(Join) error: %v", err)
	}
	if !reflect.DeepEqual(got, argv) {
		t.Fatalf("round trip = %q, want %q", got, argv)
	}
}

func TestJoinWindows(t *testing.T) {
	t.Parallel()
	tests := []struct {
		argv []string
		want string
	}{
		{argv: []string{`C:\tools\etl.exe`, "--full"}, want: `C:\tools\etl.exe --full`},
		{argv: []string{"echo", "hello world"}, want: `echo "hello world"`},
		{argv: []string{`C:\dir x\`}, want: `"C:\dir x\\"`},
		{argv: []string{"echo", `say "hi"`}, want: `echo "say \"hi\""`},
		{argv: []string{`a\"b`}, want: `"a\\\"b"`},
		{argv: []string{"echo", ""}, want: `echo ""`},
	}
	for _, tt := range tests {
		if got := JoinWindows(tt.argv); got != tt.want {
			t.Fatalf("JoinWindows(%q) = %q, want %q", tt.argv, got, tt.want)
		}
	}
}
