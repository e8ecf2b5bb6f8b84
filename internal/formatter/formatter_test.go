package formatter_test

import (
	"testing"

	"aslang/internal/formatter"
)

func format(t *testing.T, src string) string {
	t.Helper()
	out, err := formatter.New().Format(src)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	return out
}

func TestNormalizesSpacing(t *testing.T) {
	got := format(t, "let   x=1+2*3\noutput x")
	want := "let x = 1 + 2 * 3;\noutput x;\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestKeepsNeededParens(t *testing.T) {
	got := format(t, "output (1 + 2) * 3;")
	want := "output (1 + 2) * 3;\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDropsRedundantParens(t *testing.T) {
	got := format(t, "output (1 * 2) + 3;")
	want := "output 1 * 2 + 3;\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPowerAssociativityParens(t *testing.T) {
	if got := format(t, "output (2 ^ 3) ^ 2;"); got != "output (2 ^ 3) ^ 2;\n" {
		t.Errorf("left-nested power: got %q", got)
	}
	if got := format(t, "output 2 ^ (3 ^ 2);"); got != "output 2 ^ 3 ^ 2;\n" {
		t.Errorf("right-nested power: got %q", got)
	}
}

func TestBlocksAndIndentation(t *testing.T) {
	src := "fn f(a,b){if a{output a}else{output b}}"
	want := "fn f(a, b) {\n\tif a {\n\t\toutput a;\n\t} else {\n\t\toutput b;\n\t}\n}\n"
	if got := format(t, src); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestForClauseIncrement(t *testing.T) {
	got := format(t, "for(let i=0;i<3;i=i+1){output i}")
	want := "for (let i = 0; i < 3; i++) {\n\toutput i;\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIdempotent(t *testing.T) {
	src := `
let total = 0;
for (let i = 1; i <= 4; i++) {
	if i % 2 == 0 {
		continue;
	}
	total = total + i;
}

async fn shout(s) {
	return s + "!";
}
output shout("done");
`
	once := format(t, src)
	twice := format(t, once)
	if once != twice {
		t.Errorf("not idempotent:\nfirst  %q\nsecond %q", once, twice)
	}
}

func TestParseErrorReturnsSourceUnchanged(t *testing.T) {
	src := "let = broken"
	got, err := formatter.New().Format(src)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got != src {
		t.Errorf("source was altered: %q", got)
	}
}
