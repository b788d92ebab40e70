package gamemap

import "github.com/shopspring/decimal"

func India() *Map {
	return &Map{
		ID:             "india",
		PlayerBaseCash: decimal.NewFromInt(1000),
		Lands: []LandSpec{
			{"Mumbai", 300},
			{"Pune", 160},
			{"Goa", 180},
			{"Bengaluru", 260},
			{"Chennai", 220},
			{"Hyderabad", 240},
			{"Kolkata", 200},
			{"Patna", 100},
			{"Varanasi", 120},
			{"Delhi", 280},
			{"Jaipur", 140},
			{"Ahmedabad", 170},
			{"Kochi", 150},
			{"Shimla", 110},
			{"Srinagar", 130},
			{"Lucknow", 120},
		},
	}
}

func Classic() *Map {
	return &Map{
		ID:             "classic",
		PlayerBaseCash: decimal.NewFromInt(1500),
		Lands: []LandSpec{
			{"Old Kent Road", 60},
			{"Whitechapel Road", 60},
			{"The Angel Islington", 100},
			{"Euston Road", 100},
			{"Pentonville Road", 120},
			{"Pall Mall", 140},
			{"Whitehall", 140},
			{"Northumberland Avenue", 160},
			{"Bow Street", 180},
			{"Marlborough Street", 180},
			{"Vine Street", 200},
			{"Strand", 220},
			{"Fleet Street", 220},
			{"Trafalgar Square", 240},
			{"Leicester Square", 260},
			{"Coventry Street", 260},
			{"Piccadilly", 280},
			{"Regent Street", 300},
			{"Oxford Street", 300},
			{"Bond Street", 320},
			{"Park Lane", 350},
			{"Mayfair", 400},
		},
	}
}
