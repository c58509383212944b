package compiler

import (
	"strings"
	"testing"
)

// simpleSource is a short expression used for benchmarking the fast path.
const simpleSource = "1+2*3"

// complexSource is a long expression with deep nesting and every operator.
var complexSource = strings.Repeat("(1+2*(3-4/(5+", 20) + "6" + strings.Repeat(")))", 20)

func BenchmarkTokenize_Simple(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Tokenize(simpleSource); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTokenize_Complex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Tokenize(complexSource); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse_Complex(b *testing.B) {
	tokens, err := Tokenize(complexSource)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(tokens, complexSource); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerate_Complex(b *testing.B) {
	tree, err := ParseExpr(complexSource)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Generate(tree); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompile_Simple(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Compile(simpleSource); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRun_Complex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Run(complexSource); err != nil {
			b.Fatal(err)
		}
	}
}
