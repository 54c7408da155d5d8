package roomstore

import "fmt"

func walletsKey(code string) string {
	return fmt.Sprintf("room:%s:wallets", code)
}

func labelsKey(code string) string {
	return fmt.Sprintf("room:%s:labels", code)
}

func configKey(code string) string {
	return fmt.Sprintf("room:%s:config", code)
}

func alarmKey(code string) string {
	return fmt.Sprintf("room:%s:alarm", code)
}
