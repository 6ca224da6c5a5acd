package proxy

import (
	"errors"
	"math"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("body is not valid JSON")

// Payload é o corpo já validado. Body é repassado byte a byte ao upstream.
type Payload struct {
	Model string
	Body  []byte
}

// ParsePayload confere que body é JSON e que model e messages estão presentes.
//
// "Presente" segue a regra de truthiness do navegador que chama o proxy:
// ausente, null, false, 0 e "" contam como faltando; qualquer objeto ou array,
// mesmo vazio, conta como presente. O formato de messages não é checado.
func ParsePayload(body []byte) (Payload, error) {
	if !gjson.ValidBytes(body) {
		return Payload{}, &ValidationError{Kind: KindMalformedBody, Err: errInvalidJSON}
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Payload{}, missingFields()
	}

	model, messages := requiredValues(root)
	if !truthy(model) || !truthy(messages) {
		return Payload{}, missingFields()
	}
	return Payload{Model: model.String(), Body: body}, nil
}

// requiredValues lê model e messages do objeto. Com chave repetida vale a
// última ocorrência, como no JSON.parse do navegador.
func requiredValues(obj gjson.Result) (model, messages gjson.Result) {
	obj.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "model":
			model = v
		case "messages":
			messages = v
		}
		return true
	})
	return model, messages
}

func missingFields() *ValidationError {
	return &ValidationError{Kind: KindMissingField, Required: RequiredFields}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0 && !math.IsNaN(v.Num)
	default:
		return false
	}
}
