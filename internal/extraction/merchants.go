package extraction

// MerchantList holds the known-merchant reference data, split by
// category. The categories only matter for maintenance; lookup merges
// them into one list.
type MerchantList struct {
	Supermarkets []string
	Restaurants  []string
	Retailers    []string
}

// UKMerchants is the default merchant reference list, covering the
// chains that show up on the vast majority of UK receipts.
var UKMerchants = MerchantList{
	Supermarkets: []string{
		"TESCO", "SAINSBURY", "ASDA", "MORRISONS", "ALDI", "LIDL",
		"WAITROSE", "CO-OP", "COOP", "ICELAND", "M&S", "MARKS & SPENCER",
		"SPAR", "BUDGENS", "FARMFOODS",
	},
	Restaurants: []string{
		"MCDONALD", "KFC", "BURGER KING", "SUBWAY", "GREGGS", "COSTA",
		"STARBUCKS", "CAFFE NERO", "PRET A MANGER", "PRET", "NANDO",
		"PIZZA EXPRESS", "PIZZA HUT", "DOMINO", "WETHERSPOON", "TOBY CARVERY",
	},
	Retailers: []string{
		"BOOTS", "SUPERDRUG", "ARGOS", "CURRYS", "SCREWFIX", "B&Q",
		"WICKES", "TOOLSTATION", "HALFORDS", "HOMEBASE", "JOHN LEWIS",
		"NEXT", "PRIMARK", "WH SMITH", "WHSMITH", "POUNDLAND", "TK MAXX",
		"WILKO", "IKEA", "AMAZON", "RYMAN", "ROBERT DYAS",
	},
}

// merged returns all categories as a single lookup slice. Order is
// stable (supermarkets, restaurants, retailers) so that lookups are
// deterministic when a line mentions more than one known name.
func (m MerchantList) merged() []string {
	out := make([]string, 0, len(m.Supermarkets)+len(m.Restaurants)+len(m.Retailers))
	out = append(out, m.Supermarkets...)
	out = append(out, m.Restaurants...)
	out = append(out, m.Retailers...)
	return out
}
