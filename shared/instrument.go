package shared

// Instrument represents a tracked exchange traded fund.
type Instrument struct {
	// Name is the display name of the fund.
	Name string
	// Market is the fund code on the exchange.
	Market string
	// Sector is the upstream industry board name the fund tracks, as the
	// exchange reports it. Empty for funds without a sector board.
	Sector string
}

// InstrumentSet represents a named, insertion-ordered collection of funds
// selected wholesale for a scan run.
type InstrumentSet struct {
	Name        string
	Instruments []Instrument
}

// NewInstrumentSet initializes a new instrument set.
func NewInstrumentSet(name string) *InstrumentSet {
	return &InstrumentSet{
		Name: name,
	}
}

// Add appends a fund to the set, preserving insertion order.
func (s *InstrumentSet) Add(name string, market string, sector string) {
	s.Instruments = append(s.Instruments, Instrument{Name: name, Market: market, Sector: sector})
}

// Len returns the number of funds in the set.
func (s *InstrumentSet) Len() int {
	return len(s.Instruments)
}

// SectorETFs returns the built-in sector fund set, one fund per tracked
// industry. Sector names are the exchange's board names, they key the join
// against capital-flow rankings.
func SectorETFs() *InstrumentSet {
	set := NewInstrumentSet("sector")
	set.Add("Semiconductors", "512480", "半导体")
	set.Add("Medical Devices", "159883", "医疗器械")
	set.Add("Liquor", "512690", "酿酒行业")
	set.Add("Banks", "512800", "银行")
	set.Add("Securities", "512880", "证券")
	set.Add("Solar Equipment", "159863", "光伏设备")
	set.Add("Power", "159611", "电力行业")
	set.Add("Telecom Services", "159695", "通信服务")
	set.Add("Electronic Components", "515320", "电子元件")

	return set
}

// WatchlistETFs returns the built-in watchlist fund set. Watchlist funds track
// broad indexes and commodities, none map to an industry board.
func WatchlistETFs() *InstrumentSet {
	set := NewInstrumentSet("watchlist")
	set.Add("Nasdaq 100", "513100", "")
	set.Add("CSI 300", "510300", "")
	set.Add("Gold", "518880", "")

	return set
}
