package updates

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func CreateText(username, gameCode string) string {
	return fmt.Sprintf("%s created game %s", username, gameCode)
}

func JoinText(username string) string {
	return fmt.Sprintf("%s joined The Strategists!", username)
}

func KickText(username string) string {
	return fmt.Sprintf("Host kicked %s out!", username)
}

func StartText(username string) string {
	return fmt.Sprintf("The Strategists started! %s's turn to invest.", username)
}

func MoveText(username string, roll int, land string) string {
	return fmt.Sprintf("%s travelled %d steps and reached %s.", username, roll, land)
}

func InvestText(username string, ownership decimal.Decimal, land string) string {
	return fmt.Sprintf("%s invested in %s%% of %s!", username, ownership.StringFixed(2), land)
}

func RentText(source string, amount decimal.Decimal, target, land string) string {
	return fmt.Sprintf("%s paid %s cash rent to %s for %s.", source, amount.StringFixed(2), target, land)
}

func SkipText(username string) string {
	return fmt.Sprintf("%s's turn skipped due to inactivity!", username)
}

func BankruptcyText(username string) string {
	return fmt.Sprintf("%s declared bankruptcy!", username)
}

func TurnText(previous, current string) string {
	return fmt.Sprintf("%s passed turn to %s.", previous, current)
}

func WinText(username string) string {
	return fmt.Sprintf("%s won The Strategists!", username)
}

func ResetText() string {
	return "Host restarted The Strategists!"
}
