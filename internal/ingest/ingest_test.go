package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/ingest"
	"github.com/fairdiet/fairdiet/internal/series"
)

func TestParseRows(t *testing.T) {
	tests := []struct {
		name           string
		csv            string
		requireElement bool
		want           []series.Row
		wantErr        string
	}{
		{
			name: "snake case headers",
			csv: "element_code,area_code,year,value\n" +
				"10004,826,1961,0.12\n" +
				"664,826,1961,3100\n",
			requireElement: true,
			want: []series.Row{
				{ElementCode: 10004, AreaCode: 826, Year: 1961, Value: 0.12},
				{ElementCode: 664, AreaCode: 826, Year: 1961, Value: 3100},
			},
		},
		{
			name: "FAOSTAT export headers with extra columns",
			csv: "\ufeffDomain Code,Area Code,Area,Element Code,Item,Year,Unit,Value\n" +
				"FBS,152,Chile,674,Bovine Meat,2018,g/capita/day,9.5\n" +
				"FBS,152,Chile,674,Bovine Meat,2017,g/capita/day,\n",
			requireElement: true,
			want: []series.Row{
				{ElementCode: 674, AreaCode: 152, Year: 2018, Value: 9.5},
			},
		},
		{
			name:           "population without element column",
			csv:            "area_code,year,value\n5000,1961,3.07e9\n",
			requireElement: false,
			want:           []series.Row{{AreaCode: 5000, Year: 1961, Value: 3.07e9}},
		},
		{
			name: "population element column ignored",
			csv: "Element Code,Area Code,Year,Value\n" +
				"511,826,2000,58950000\n" +
				"511,826,2001,59120000\n",
			requireElement: false,
			want: []series.Row{
				{AreaCode: 826, Year: 2000, Value: 58950000},
				{AreaCode: 826, Year: 2001, Value: 59120000},
			},
		},
		{
			name:           "float codes",
			csv:            "element_code,area_code,year,value\n10004.0,826.0,1961,1\n",
			requireElement: true,
			want:           []series.Row{{ElementCode: 10004, AreaCode: 826, Year: 1961, Value: 1}},
		},
		{
			name:           "missing element column",
			csv:            "area_code,year,value\n826,1961,1\n",
			requireElement: true,
			wantErr:        "element_code",
		},
		{
			name:           "bad value",
			csv:            "element_code,area_code,year,value\n1,2,1961,lots\n",
			requireElement: true,
			wantErr:        "line 2: value",
		},
		{
			name:           "bad year",
			csv:            "element_code,area_code,year,value\n1,2,19x1,1\n",
			requireElement: true,
			wantErr:        "line 2: year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ingest.ParseRows(context.Background(), strings.NewReader(tt.csv), tt.requireElement)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

// writeDataset writes item files for every catalog item and a population file
// covering regions, with one value per element and year.
func writeDataset(t *testing.T, dir string, cat *catalog.Catalog, areas ...int) {
	t.Helper()
	codes := cat.Nutrients()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "food"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "population"), 0o755))

	src := ingest.NewDirSource(dir)
	for _, item := range cat.Items() {
		var sb strings.Builder
		sb.WriteString("element_code,area_code,year,value\n")
		for _, area := range areas {
			for _, year := range cat.Years().Years() {
				for k, code := range []int{codes.Weight, codes.Calories, codes.Protein} {
					fmt.Fprintf(&sb, "%d,%d,%d,%g\n", code, area, year, float64(item.Index+1)*float64(k+1))
				}
			}
		}
		require.NoError(t, os.WriteFile(src.ItemPath(item), []byte(sb.String()), 0o600))
	}

	var sb strings.Builder
	sb.WriteString("area_code,year,value\n")
	for _, area := range areas {
		for _, year := range cat.Years().Years() {
			fmt.Fprintf(&sb, "%d,%d,%d\n", area, year, 1000)
		}
	}
	require.NoError(t, os.WriteFile(src.PopulationPath(), []byte(sb.String()), 0o600))
}

func smallCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.YearRange{First: 2000, Last: 2002},
		catalog.NutrientCodes{Weight: 10004, Calories: 664, Protein: 674},
		[]catalog.FoodItem{
			{Code: "bovine", Name: "Bovine", GroupID: "meat", Role: catalog.RoleRuminant, EmissionFactor: 70.5},
			{Code: "beans", Name: "Beans", GroupID: "legumes", Role: catalog.RoleNonMeat, EmissionFactor: 1.8},
		},
		nil,
		catalog.Region{Name: "uk", Code: 826},
		catalog.Region{Name: "chile", Code: 152},
	)
	require.NoError(t, err)
	return c
}

func TestLoadStores(t *testing.T) {
	dir := t.TempDir()
	cat := smallCatalog(t)
	writeDataset(t, dir, cat, 826, 152)

	src := ingest.NewDirSource(dir)
	assert.Equal(t, filepath.Join(dir, "food", "FAOSTAT_Bovine_data.csv"), src.ItemPath(cat.Item(0)))

	stores, err := ingest.LoadStores(context.Background(), cat, src, cat.Regions())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "uk", stores[0].Region().Name)
	assert.Equal(t, "chile", stores[1].Region().Name)

	protein, err := stores[1].Series(catalog.BasisProtein, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 6}, protein)
}

func TestLoadStores_FAOSTATPopulation(t *testing.T) {
	dir := t.TempDir()
	cat := smallCatalog(t)
	writeDataset(t, dir, cat, 826)

	src := ingest.NewDirSource(dir)
	pop := "Domain Code,Area Code,Area,Element Code,Element,Year,Unit,Value\n" +
		"OA,826,United Kingdom,511,Total Population - Both sexes,2000,1000 No,58950\n" +
		"OA,826,United Kingdom,511,Total Population - Both sexes,2001,1000 No,59120\n" +
		"OA,826,United Kingdom,511,Total Population - Both sexes,2002,1000 No,59370\n"
	require.NoError(t, os.WriteFile(src.PopulationPath(), []byte(pop), 0o600))

	stores, err := ingest.LoadStores(context.Background(), cat, src, cat.Regions()[:1])
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, []float64{58950, 59120, 59370}, stores[0].Population())
}

func TestLoadStores_MissingRegionData(t *testing.T) {
	dir := t.TempDir()
	cat := smallCatalog(t)
	writeDataset(t, dir, cat, 826)

	_, err := ingest.LoadStores(context.Background(), cat, ingest.NewDirSource(dir), cat.Regions())
	require.ErrorIs(t, err, series.ErrDataLoad)
	assert.Contains(t, err.Error(), "chile")
}

func TestLoadStores_MissingFile(t *testing.T) {
	dir := t.TempDir()
	cat := smallCatalog(t)
	writeDataset(t, dir, cat, 826, 152)
	src := ingest.NewDirSource(dir)
	require.NoError(t, os.Remove(src.ItemPath(cat.Item(1))))

	_, err := ingest.LoadStores(context.Background(), cat, ingest.NewDirSource(dir), cat.Regions())
	require.ErrorIs(t, err, series.ErrDataLoad)
	assert.Contains(t, err.Error(), "FAOSTAT_Beans_data.csv")
}

func TestDirSource_Options(t *testing.T) {
	src := ingest.NewDirSource("/data",
		ingest.WithItemPattern("items/{item}.csv"),
		ingest.WithPopulationFile("/abs/pop.csv"))

	assert.Equal(t, filepath.Join("/data", "items", "Beans.csv"), src.ItemPath(catalog.FoodItem{Name: "Beans"}))
	assert.Equal(t, filepath.Join("/data", "items", "Soyabeans.csv"), src.ItemPath(catalog.FoodItem{Name: "Soy", Source: "Soyabeans"}))
	assert.Equal(t, "/abs/pop.csv", src.PopulationPath())
}
