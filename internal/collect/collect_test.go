package collect_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var settlement = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func sampleQuotes() *collect.CollectedQuotes {
	collected := collect.NewCollectedQuotes("test", settlement)

	ok := types.NewUKGilt("test", settlement)
	ok.ISIN = "GB00BTHH2R79"
	ok.Desc = "4½% Treasury Gilt 2034"
	ok.Coupon = 4.5
	ok.CleanPrice = 101.23
	ok.MaturityDate = time.Date(2034, 9, 7, 0, 0, 0, 0, time.UTC)
	collected.AddQuote(&collect.CollectedQuote{Quote: ok})

	expired := types.NewUKGilt("test", settlement)
	expired.ISIN = "GB0000000001"
	expired.Coupon = 1
	expired.CleanPrice = 99
	expired.MaturityDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	collected.AddQuote(&collect.CollectedQuote{Quote: expired})

	return collected
}

func TestAnalyze(t *testing.T) {
	batch := collect.Analyze(sampleQuotes(), types.DefaultParams(), 10000, quietLogger())

	if len(batch.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(batch.Records))
	}

	rec := batch.Records[0]
	if rec.Error != "" || !rec.Converged {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.ID == "" || rec.ID == batch.Records[1].ID {
		t.Errorf("records need distinct ids")
	}

	s := types.BondSpec{Price: 101.23, FaceValue: 100, CouponRate: 0.045, MaturityYears: 9, PaymentsPerYear: 2, Amount: 10000}
	want, err := types.Analyze(s, types.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if rec.YieldRate != want.YieldRate || rec.Duration != want.Duration || rec.Convexity != want.Convexity {
		t.Errorf("record %+v does not match direct analysis %+v", rec, want)
	}

	if batch.Records[1].Error == "" {
		t.Errorf("expected an error for a matured gilt")
	}
}

func TestStoreToPathRoundTrip(t *testing.T) {
	batch := collect.Analyze(sampleQuotes(), types.DefaultParams(), 100, quietLogger())
	dir := t.TempDir()

	path, err := collect.StoreToPath(context.Background(), batch, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := filepath.Join(dir, "2025", "03", "14", "test.parquet"); path != want {
		t.Errorf("path %s, want %s", path, want)
	}

	records, err := collect.ReadRecords(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}

	if len(records) != len(batch.Records) {
		t.Fatalf("got %d records, want %d", len(records), len(batch.Records))
	}
	if records[0].ISIN != batch.Records[0].ISIN || records[0].YieldRate != batch.Records[0].YieldRate {
		t.Errorf("got %+v, want %+v", records[0], batch.Records[0])
	}
	if records[1].Error != batch.Records[1].Error {
		t.Errorf("error text not stored")
	}
}

type fakePutter struct {
	key  string
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestStoreToS3(t *testing.T) {
	batch := collect.Analyze(sampleQuotes(), types.DefaultParams(), 100, quietLogger())
	putter := &fakePutter{}

	dst, err := collect.ParseS3("s3://bonds-data/daily/")
	if err != nil {
		t.Fatal(err)
	}

	out, err := collect.StoreToS3(context.Background(), batch, putter, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "s3://bonds-data/daily/2025/03/14/test.parquet" {
		t.Errorf("unexpected location %s", out)
	}
	if putter.key != "bonds-data/daily/2025/03/14/test.parquet" {
		t.Errorf("unexpected key %s", putter.key)
	}

	records, err := parquet.Read[collect.Record](bytes.NewReader(putter.body), int64(len(putter.body)))
	if err != nil {
		t.Fatalf("uploaded body is not parquet: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d uploaded records, want 2", len(records))
	}

	putter.err = fmt.Errorf("access denied")
	if _, err := collect.StoreToS3(context.Background(), batch, putter, dst); err == nil {
		t.Error("expected upload failure")
	}
}

func TestStoreDispatchesOnDestination(t *testing.T) {
	batch := &collect.Batch{Source: "sheet", SettlementDate: settlement}
	noClient := func() (collect.ObjectPutter, error) { return nil, errors.New("no client") }

	dir := t.TempDir()
	if _, err := collect.Store(context.Background(), batch, dir, noClient); err != nil {
		t.Errorf("local store: %v", err)
	}

	if _, err := collect.Store(context.Background(), batch, "s3://bucket", noClient); err == nil {
		t.Error("expected the client error for an s3 destination")
	}

	if _, err := collect.Store(context.Background(), batch, "s3://", noClient); err == nil {
		t.Error("expected an error for a missing bucket")
	}
}

func TestParseS3(t *testing.T) {
	cases := []struct {
		in             string
		bucket, prefix string
	}{
		{"s3://bucket", "bucket", ""},
		{"s3://bucket/", "bucket", ""},
		{"s3://bucket/a/b/", "bucket", "a/b"},
	}

	for _, c := range cases {
		p, err := collect.ParseS3(c.in)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.in, err)
			continue
		}
		if p.Bucket != c.bucket || p.Prefix != c.prefix {
			t.Errorf("%s: got %+v", c.in, p)
		}
	}

	if _, err := collect.ParseS3("/tmp/out"); err == nil {
		t.Error("expected an error for a local path")
	}
}

func TestLoadSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.csv")
	body := "Name,Price,Coupon,Maturity,Frequency,Amount\n" +
		"BTP 2044,96.24,0.0315,19,1,10000\n" +
		"\n" +
		"Broken,99,0.02,0,2,100\n" +
		"Par,100,0.04,10,2,\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := collect.LoadSpecs(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	want := types.BondSpec{Price: 96.24, FaceValue: 100, CouponRate: 0.0315, MaturityYears: 19, PaymentsPerYear: 1, Amount: 10000}
	if rows[0].Err != nil || rows[0].Spec != want || rows[0].Name != "BTP 2044" {
		t.Errorf("got %+v, want %+v", rows[0], want)
	}

	if field, ok := types.IsInvalidParameter(rows[1].Err); !ok || field != "maturity_years" {
		t.Errorf("got %v, want invalid maturity", rows[1].Err)
	}

	if rows[2].Err != nil || rows[2].Spec.Amount != 100 {
		t.Errorf("default amount not applied: %+v", rows[2])
	}

	batch := collect.AnalyzeSpecs("sheet", settlement, rows, types.DefaultParams(), quietLogger())
	if len(batch.Records) != 3 || batch.Records[1].Error == "" || batch.Records[2].YieldRate == 0 {
		t.Errorf("unexpected batch %+v", batch.Records)
	}
}

func TestLoadSpecsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.csv")
	if err := os.WriteFile(path, []byte("Name,Price,Coupon\nA,99,0.01\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := collect.LoadSpecs(path); !errors.Is(err, collect.ErrMissingColumn) {
		t.Errorf("got %v, want ErrMissingColumn", err)
	}
}

const dividendDataPage = `<html><body>
<label>Last updated: %s</label>
<table id="mainbody">
<tr><th>Ticker</th><th>Name</th><th>Coupon</th><th>Maturity</th><th>Years</th><th>Price</th><th>Yield</th></tr>
<tr><td>TN28</td><td>Treasury 4.125%% 2028</td><td>4.125%%</td><td>22-Jul-2028</td><td>3.4</td><td>£100.50</td><td>3.95%%</td></tr>
<tr><td>TR30</td><td>Treasury 0.375%% 2030</td><td>0.375%%</td><td>not a date</td><td>5.6</td><td>£85.10</td><td>3.80%%</td></tr>
</table>
</body></html>`

func TestDividendDataCollector(t *testing.T) {
	page := fmt.Sprintf(dividendDataPage, "14 Mar 2025")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, page)
	}))
	defer srv.Close()

	c := collect.NewDividendDataCollector(quietLogger())
	c.URL = srv.URL

	collected, err := c.Collect(context.Background(), settlement)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(collected.Quotes) != 1 || len(collected.Failures) != 1 {
		t.Fatalf("got %d quotes and %d failures", len(collected.Quotes), len(collected.Failures))
	}

	q := collected.Quotes[0]
	if q.Ticker != "TN28" || q.Coupon != 4.125 || q.CleanPrice != 100.5 || q.QuotedYield != 3.95 {
		t.Errorf("unexpected quote %+v", q)
	}

	if _, err := c.Collect(context.Background(), settlement.AddDate(0, 0, 1)); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("stale page: got %v, want ErrDataUnavailable", err)
	}
	if q.Desc != "Treasury 4.125% 2028" {
		t.Errorf("description %q", q.Desc)
	}
}

func TestDividendDataCollectorCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, dividendDataPage, "14 Mar 2025")
	}))
	defer srv.Close()

	c := collect.NewDividendDataCollector(quietLogger())
	c.URL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Collect(ctx, settlement); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server was hit %d times after cancellation", n)
	}
}

func TestLoadSpecsQuotedDecimalComma(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.csv")
	body := "name,price,coupon,maturity,frequency\n" +
		"\"BTP, 2044\",\"96,24\",\"0,0315\",19,1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := collect.LoadSpecs(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Err != nil {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].Name != "BTP, 2044" || rows[0].Spec.Price != 96.24 || rows[0].Spec.CouponRate != 0.0315 {
		t.Errorf("unexpected row %+v", rows[0])
	}
}
