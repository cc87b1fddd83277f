package payment

import "strings"

// Method keys match order.PaymentMethod values.
const (
	MethodCard     = "card"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

var InstructionMap = map[string][]string{
	MethodCard: {
		"El cargo de {{amount}} fue aprobado en tu tarjeta",
		"Recibirás el comprobante del pedido {{order_number}} en tu correo",
	},

	MethodCash: {
		"Prepara {{amount}} en efectivo para la entrega",
		"Paga directamente al proveedor al recibir tu pedido {{order_number}}",
		"Si no tienes el monto exacto, avisa en las notas de entrega",
	},

	MethodTransfer: {
		"Transfiere {{amount}} a la cuenta indicada por el proveedor",
		"Usa el número de pedido {{order_number}} como referencia",
		"Conserva el comprobante de la transferencia",
	},
}

func GetInstructions(method string) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}

	return []string{
		"Sigue las instrucciones de pago que te enviará el proveedor",
	}
}

type InstructionVars map[string]string

func InjectVariables(steps []string, vars InstructionVars) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(updated, "{{"+key+"}}", value)
		}
		result = append(result, updated)
	}

	return result
}

// Render returns the confirmation steps for a method with the order's
// amount and number filled in.
func Render(method, amount, orderNumber string) []string {
	return InjectVariables(GetInstructions(method), InstructionVars{
		"amount":       amount,
		"order_number": orderNumber,
	})
}
