package auth

import (
	"fmt"
	"net/http"
)

// Operator — аутентифицированный пользователь запроса. Аутентификацию
// выполняет шлюз перед сервисом, сюда личность приходит в заголовках.
type Operator struct {
	ID       string
	Username string
	Email    string
}

// OperatorFromRequest извлекает личность оператора из заголовков шлюза.
func OperatorFromRequest(r *http.Request) (Operator, error) {
	op := Operator{
		ID:       r.Header.Get("X-Operator-Id"),
		Username: r.Header.Get("X-Operator-Username"),
		Email:    r.Header.Get("X-Operator-Email"),
	}

	if op.ID == "" || op.Username == "" {
		return Operator{}, fmt.Errorf("no operator identity in request")
	}

	return op, nil
}
