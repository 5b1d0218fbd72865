package domain

import "encoding/json"

// BoardName identifies a PTT board. Most entries come from the hot boards
// list; anything else parses to BoardUnknown.
type BoardName int

const (
	BoardUnknown BoardName = iota
	BoardAllTogether
	BoardBankService
	BoardBaseball
	BoardBasketballTW
	BoardBeauty
	BoardBeautySalon
	BoardBiker
	BoardBoyGirl
	BoardBrand
	BoardBuyTogether
	BoardCChat
	BoardCar
	BoardCarShop
	BoardCat
	BoardChinaDrama
	BoardCookClub
	BoardCreditCard
	BoardDcSale
	BoardDmmGames
	BoardDramaTicket
	BoardDslr
	BoardEAppliance
	BoardEShopping
	BoardExamination
	BoardFastFood
	BoardFateGo
	BoardFinance
	BoardFood
	BoardForSale
	BoardGameSale
	BoardGay
	BoardGbf
	BoardGetMarry
	BoardGive
	BoardGossiping
	BoardHardwareSale
	BoardHatePolitics
	BoardHbl
	BoardHeadphone
	BoardHearthstone
	BoardHelpBuy
	BoardHomeSale
	BoardHyperMall
	BoardInsurance
	BoardIOs
	BoardIu
	BoardJapanTravel
	BoardJapanAvGirls
	BoardJapanDrama
	BoardJoke
	BoardKaohsiung
	BoardKeyMouPad
	BoardKoreaDrama
	BoardKoreaStar
	BoardKoreanPop
	BoardLakers
	BoardLesbian
	BoardLifeIsMoney
	BoardLoL
	BoardMacShop
	BoardMakeUp
	BoardMarriage
	BoardMarvel
	BoardMayDay
	BoardMedstudent
	BoardMilitary
	BoardMlb
	BoardMobileComm
	BoardMobileGame
	BoardMobilePay
	BoardMobileSales
	BoardMovie
	BoardMuscleBeach
	BoardNbShopping
	BoardNba
	BoardNbaFilm
	BoardNogizaka46
	BoardNSwitch
	BoardOnePiece
	BoardPalmarDrama
	BoardPartTime
	BoardPathOfExile
	BoardPcShopping
	BoardPlayStation
	BoardPokeMon
	BoardPokemonGO
	BoardPuzzleDragon
	BoardSalary
	BoardSex
	BoardSoftJob
	BoardSportLottery
	BoardSteam
	BoardStock
	BoardStupidClown
	BoardTaichungBun
	BoardTainan
	BoardTaiwanDrama
	BoardTechJob
	BoardToS
	BoardTwEntertain
	BoardTwice
	BoardTypeMoon
	BoardWanted
	BoardWatch
	BoardWomenTalk
	BoardWow
	BoardZastrology
	BoardEASeries

	boardCount
)

// Canonical names as they appear in board URLs. Case matters.
var boardNames = [boardCount]string{
	BoardUnknown:      "Unknown",
	BoardAllTogether:  "AllTogether",
	BoardBankService:  "Bank_Service",
	BoardBaseball:     "Baseball",
	BoardBasketballTW: "basketballTW",
	BoardBeauty:       "Beauty",
	BoardBeautySalon:  "BeautySalon",
	BoardBiker:        "biker",
	BoardBoyGirl:      "Boy-Girl",
	BoardBrand:        "Brand",
	BoardBuyTogether:  "BuyTogether",
	BoardCChat:        "C_Chat",
	BoardCar:          "car",
	BoardCarShop:      "CarShop",
	BoardCat:          "cat",
	BoardChinaDrama:   "China-Drama",
	BoardCookClub:     "cookclub",
	BoardCreditCard:   "creditcard",
	BoardDcSale:       "DC_SALE",
	BoardDmmGames:     "DMM_GAMES",
	BoardDramaTicket:  "Drama-Ticket",
	BoardDslr:         "DSLR",
	BoardEAppliance:   "E-appliance",
	BoardEShopping:    "e-shopping",
	BoardExamination:  "Examination",
	BoardFastFood:     "fastfood",
	BoardFateGo:       "FATE_GO",
	BoardFinance:      "Finance",
	BoardFood:         "Food",
	BoardForSale:      "forsale",
	BoardGameSale:     "Gamesale",
	BoardGay:          "gay",
	BoardGbf:          "GBF",
	BoardGetMarry:     "GetMarry",
	BoardGive:         "give",
	BoardGossiping:    "Gossiping",
	BoardHardwareSale: "HardwareSale",
	BoardHatePolitics: "HatePolitics",
	BoardHbl:          "HBL",
	BoardHeadphone:    "Headphone",
	BoardHearthstone:  "Hearthstone",
	BoardHelpBuy:      "HelpBuy",
	BoardHomeSale:     "home-sale",
	BoardHyperMall:    "hypermall",
	BoardInsurance:    "Insurance",
	BoardIOs:          "iOS",
	BoardIu:           "IU",
	BoardJapanTravel:  "Japan_Travel",
	BoardJapanAvGirls: "japanavgirls",
	BoardJapanDrama:   "Japandrama",
	BoardJoke:         "joke",
	BoardKaohsiung:    "Kaohsiung",
	BoardKeyMouPad:    "Key_Mou_Pad",
	BoardKoreaDrama:   "KoreaDrama",
	BoardKoreaStar:    "KoreaStar",
	BoardKoreanPop:    "KoreanPop",
	BoardLakers:       "Lakers",
	BoardLesbian:      "lesbian",
	BoardLifeIsMoney:  "Lifeismoney",
	BoardLoL:          "LoL",
	BoardMacShop:      "MacShop",
	BoardMakeUp:       "MakeUp",
	BoardMarriage:     "marriage",
	BoardMarvel:       "marvel",
	BoardMayDay:       "MayDay",
	BoardMedstudent:   "medstudent",
	BoardMilitary:     "Military",
	BoardMlb:          "MLB",
	BoardMobileComm:   "MobileComm",
	BoardMobileGame:   "Mobile-game",
	BoardMobilePay:    "MobilePay",
	BoardMobileSales:  "mobilesales",
	BoardMovie:        "movie",
	BoardMuscleBeach:  "MuscleBeach",
	BoardNbShopping:   "nb-shopping",
	BoardNba:          "NBA",
	BoardNbaFilm:      "NBA_Film",
	BoardNogizaka46:   "Nogizaka46",
	BoardNSwitch:      "NSwitch",
	BoardOnePiece:     "ONE_PIECE",
	BoardPalmarDrama:  "Palmar_Drama",
	BoardPartTime:     "part-time",
	BoardPathOfExile:  "PathofExile",
	BoardPcShopping:   "PC_Shopping",
	BoardPlayStation:  "PlayStation",
	BoardPokeMon:      "PokeMon",
	BoardPokemonGO:    "PokemonGO",
	BoardPuzzleDragon: "PuzzleDragon",
	BoardSalary:       "Salary",
	BoardSex:          "sex",
	BoardSoftJob:      "Soft_Job",
	BoardSportLottery: "SportLottery",
	BoardSteam:        "Steam",
	BoardStock:        "Stock",
	BoardStupidClown:  "StupidClown",
	BoardTaichungBun:  "TaichungBun",
	BoardTainan:       "Tainan",
	BoardTaiwanDrama:  "TaiwanDrama",
	BoardTechJob:      "Tech_Job",
	BoardToS:          "ToS",
	BoardTwEntertain:  "TW_Entertain",
	BoardTwice:        "TWICE",
	BoardTypeMoon:     "TypeMoon",
	BoardWanted:       "Wanted",
	BoardWatch:        "watch",
	BoardWomenTalk:    "WomenTalk",
	BoardWow:          "WOW",
	BoardZastrology:   "Zastrology",
	BoardEASeries:     "EAseries",
}

var boardsByName = func() map[string]BoardName {
	m := make(map[string]BoardName, len(boardNames))
	for i, name := range boardNames {
		m[name] = BoardName(i)
	}
	return m
}()

// ParseBoardName never fails: names outside the known set map to BoardUnknown.
func ParseBoardName(s string) BoardName {
	if b, ok := boardsByName[s]; ok {
		return b
	}
	return BoardUnknown
}

func (b BoardName) String() string {
	if b < 0 || b >= boardCount {
		return boardNames[BoardUnknown]
	}
	return boardNames[b]
}

// Boards lists every known board, excluding BoardUnknown.
func Boards() []BoardName {
	boards := make([]BoardName, 0, boardCount-1)
	for b := BoardUnknown + 1; b < boardCount; b++ {
		boards = append(boards, b)
	}
	return boards
}

func (b BoardName) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BoardName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = ParseBoardName(s)
	return nil
}
