package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"driveprices/internal/listing"
	"driveprices/logger"
)

// ScraperStatus is one crawler's outcome for the report's status
// section. A failed crawler is shown, not hidden: its listings are
// simply absent and the reader should know why.
type ScraperStatus struct {
	Name     string
	Label    string
	Retailer string
	Items    int
	Err      string
}

// OK reports whether the crawl succeeded.
func (s ScraperStatus) OK() bool {
	return s.Err == ""
}

// Row is one ranked listing as rendered in the report table.
type Row struct {
	Rank       int
	Retailer   string
	Title      string
	URL        string
	CapacityTB float64
	Price      float64
	PricePerTB float64
}

type reportData struct {
	GeneratedAt string
	Rows        []Row
	Statuses    []ScraperStatus
	Retailers   []string
	Duplicates  int
}

// Builder renders the ranked listing set into a self-contained HTML
// report.
type Builder struct {
	outputDir string
	log       *logger.Logger
}

// NewBuilder creates a report builder writing into outputDir.
func NewBuilder(outputDir string) *Builder {
	return &Builder{
		outputDir: outputDir,
		log:       logger.ForReport(),
	}
}

// Build renders the report to index.html under the output directory
// and returns the written path. The listings are expected to be
// ranked already; the report preserves their order.
func (b *Builder) Build(listings []listing.NormalizedListing, statuses []ScraperStatus, duplicates int, generatedAt time.Time) (string, error) {
	data := reportData{
		GeneratedAt: generatedAt.Format("2006-01-02 15:04 MST"),
		Rows:        toRows(listings),
		Statuses:    statuses,
		Retailers:   retailerNames(listings),
		Duplicates:  duplicates,
	}

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(b.outputDir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	b.log.Info().
		Int("listings", len(listings)).
		Int("scrapers", len(statuses)).
		Str("path", path).
		Msg("Report written")
	return path, nil
}

func toRows(listings []listing.NormalizedListing) []Row {
	rows := make([]Row, 0, len(listings))
	for i, l := range listings {
		rows = append(rows, Row{
			Rank:       i + 1,
			Retailer:   string(l.Retailer),
			Title:      l.Title,
			URL:        l.URL,
			CapacityTB: l.CapacityGB / 1000,
			Price:      l.Price,
			PricePerTB: l.PricePerTB,
		})
	}
	return rows
}

func retailerNames(listings []listing.NormalizedListing) []string {
	seen := map[string]bool{}
	var names []string
	for _, l := range listings {
		name := string(l.Retailer)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Drive price per TB</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #222; }
  h1 { font-size: 1.4rem; }
  .meta { color: #666; font-size: 0.85rem; margin-bottom: 1rem; }
  .controls { margin: 1rem 0; }
  .controls input, .controls select { padding: 0.3rem 0.5rem; font-size: 0.9rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; text-align: left; }
  th { cursor: pointer; user-select: none; background: #f5f5f5; white-space: nowrap; }
  th.sorted-asc::after { content: " \25B2"; }
  th.sorted-desc::after { content: " \25BC"; }
  td.num, th.num { text-align: right; }
  tr:hover td { background: #fafafa; }
  .status { margin-top: 2rem; font-size: 0.9rem; }
  .status .ok { color: #2c7a2c; }
  .status .failed { color: #b03030; }
  .empty { margin: 2rem 0; color: #888; }
</style>
</head>
<body>
<h1>Drive price per TB</h1>
<div class="meta">Generated {{.GeneratedAt}}{{if .Duplicates}} &middot; {{.Duplicates}} duplicate listings collapsed{{end}}</div>

{{if .Rows}}
<div class="controls">
  <input id="filter" type="text" placeholder="Filter by title" oninput="applyFilter()">
  <select id="retailer" onchange="applyFilter()">
    <option value="">All retailers</option>
    {{range .Retailers}}<option value="{{.}}">{{.}}</option>{{end}}
  </select>
</div>

<table id="listings">
  <thead>
    <tr>
      <th class="num" data-key="rank" data-num="1">#</th>
      <th data-key="retailer">Retailer</th>
      <th data-key="title">Title</th>
      <th class="num" data-key="capacity" data-num="1">Capacity (TB)</th>
      <th class="num" data-key="price" data-num="1">Price</th>
      <th class="num" data-key="pertb" data-num="1">$/TB</th>
    </tr>
  </thead>
  <tbody>
    {{range .Rows}}
    <tr data-rank="{{.Rank}}" data-retailer="{{.Retailer}}" data-title="{{.Title}}" data-capacity="{{.CapacityTB}}" data-price="{{.Price}}" data-pertb="{{.PricePerTB}}">
      <td class="num">{{.Rank}}</td>
      <td>{{.Retailer}}</td>
      <td><a href="{{.URL}}" rel="nofollow">{{.Title}}</a></td>
      <td class="num">{{printf "%.2f" .CapacityTB}}</td>
      <td class="num">{{printf "%.2f" .Price}}</td>
      <td class="num">{{printf "%.2f" .PricePerTB}}</td>
    </tr>
    {{end}}
  </tbody>
</table>
{{else}}
<p class="empty">No listings were collected in this crawl.</p>
{{end}}

<div class="status">
  <h2>Scraper status</h2>
  <ul>
    {{range .Statuses}}
    {{if .OK}}
    <li class="ok">{{.Name}} ({{.Label}}): {{.Items}} listings</li>
    {{else}}
    <li class="failed">{{.Name}} ({{.Label}}): failed, {{.Err}}</li>
    {{end}}
    {{end}}
  </ul>
</div>

<script>
var sortKey = "pertb";
var sortAsc = true;

function applyFilter() {
  var text = document.getElementById("filter").value.toLowerCase();
  var retailer = document.getElementById("retailer").value;
  var rows = document.querySelectorAll("#listings tbody tr");
  rows.forEach(function (row) {
    var okText = row.dataset.title.toLowerCase().indexOf(text) !== -1;
    var okRetailer = retailer === "" || row.dataset.retailer === retailer;
    row.style.display = okText && okRetailer ? "" : "none";
  });
}

function applySort(key, numeric) {
  if (key === sortKey) {
    sortAsc = !sortAsc;
  } else {
    sortKey = key;
    sortAsc = true;
  }
  var tbody = document.querySelector("#listings tbody");
  var rows = Array.prototype.slice.call(tbody.querySelectorAll("tr"));
  rows.sort(function (a, b) {
    var av = a.dataset[key];
    var bv = b.dataset[key];
    if (numeric) {
      av = parseFloat(av);
      bv = parseFloat(bv);
    }
    if (av < bv) return sortAsc ? -1 : 1;
    if (av > bv) return sortAsc ? 1 : -1;
    return 0;
  });
  rows.forEach(function (row) { tbody.appendChild(row); });
  document.querySelectorAll("#listings th").forEach(function (th) {
    th.classList.remove("sorted-asc", "sorted-desc");
    if (th.dataset.key === key) {
      th.classList.add(sortAsc ? "sorted-asc" : "sorted-desc");
    }
  });
}

document.querySelectorAll("#listings th").forEach(function (th) {
  th.addEventListener("click", function () {
    applySort(th.dataset.key, th.dataset.num === "1");
  });
});
</script>
</body>
</html>
`
