package diag

import (
	"sync"
	"testing"
)

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag}, XslShadowedVariable)
	loc := Location{File: "a.xsl", Line: 3}
	r.Report(XslIgnoredAttribute, SevWarning, loc, "attribute mode ignored", nil)
	r.Report(XslIgnoredAttribute, SevWarning, loc, "attribute mode ignored", nil)
	r.Report(XslIgnoredAttribute, SevWarning, Location{File: "a.xsl", Line: 4}, "attribute mode ignored", nil)
	r.Report(XslShadowedVariable, SevWarning, loc, "x shadows x", nil)
	if bag.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bag.Len())
	}
	if bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("HasErrors/HasWarnings = %v/%v", bag.HasErrors(), bag.HasWarnings())
	}
}

func TestDedupReporterConcurrent(t *testing.T) {
	bag := NewBag(100)
	r := NewDedupReporter(NewSyncReporter(BagReporter{Bag: bag}))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Report(RunMessage, SevInfo, Location{}, "same", nil)
		}()
	}
	wg.Wait()
	if bag.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", bag.Len())
	}
}

func TestBagLimitSortAndErr(t *testing.T) {
	bag := NewBag(3)
	bag.Add(New(SevWarning, XslIgnoredAttribute, Location{File: "b.xsl", Line: 1}, "w"))
	bag.Add(NewError(ExprSyntax, Location{File: "a.xsl", Line: 9}, "bad"))
	bag.Add(NewError(ExprSyntax, Location{File: "a.xsl", Line: 2}, "worse"))
	if bag.Add(New(SevInfo, XslInfo, Location{}, "dropped")) {
		t.Fatalf("Add() past the limit = true, want false")
	}
	if bag.Len() != bag.Cap() {
		t.Fatalf("Len() = %d, want Cap() = %d", bag.Len(), bag.Cap())
	}
	bag.Sort()
	if got := bag.Items()[0].Message; got != "worse" {
		t.Fatalf("Items()[0] = %q, want worse", got)
	}
	if err := bag.Err(); err == nil {
		t.Fatalf("Err() = nil, want joined errors")
	}
	want := "error EXP2001 a.xsl:2 worse\nerror EXP2001 a.xsl:9 bad\nwarning XSL1009 b.xsl:1 w\n"
	if got := FormatShort(bag.Items(), false); got != want {
		t.Fatalf("FormatShort() = %q, want %q", got, want)
	}
}

func TestReportBuilder(t *testing.T) {
	bag := NewBag(4)
	b := ReportWarning(BagReporter{Bag: bag}, XslUnusedWithParam, Location{Line: 5}, "p\nnot declared").
		WithNote(Location{Line: 1}, "template declared here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", bag.Len())
	}
	want := "warning XSL1011 <stylesheet>:5 p not declared\n  note <stylesheet>:1 template declared here\n"
	if got := FormatShort(bag.Items(), true); got != want {
		t.Fatalf("FormatShort() = %q, want %q", got, want)
	}
}

func TestParseCode(t *testing.T) {
	tests := map[string]Code{"XSL1010": XslShadowedVariable, "run4001": RunCircularGlobal, "2002": ExprUnknownFunction}
	for in, want := range tests {
		if got, ok := ParseCode(in); !ok || got != want {
			t.Fatalf("ParseCode(%q) = %v, %v, want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseCode("XSL9999"); ok {
		t.Fatalf("ParseCode(XSL9999) ok = true, want false")
	}
}
