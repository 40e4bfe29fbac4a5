package conversation

// Replies. The wording is customer facing; tests compare it verbatim.
const (
	WelcomeMessage = "¡Hola! Soy tu asistente virtual del supermercado. \n¿Eres un cliente nuevo o ya tienes cuenta con nosotros?\n\nResponde:\n- \"Soy nuevo\" o \"Cliente nuevo\" para registrarte\n- \"Ya tengo cuenta\" o \"Cliente frecuente\" para identificarte"

	resetPrefix = "Hubo un problema. Vamos a empezar de nuevo. "

	askNewUserID       = "Perfecto! Vamos a registrarte. Primero necesito tu número de identificación (entre 4 y 11 dígitos):"
	askExistingUserID  = "¡Excelente! Por favor ingresa tu número de identificación para verificar tu cuenta:"
	clarifyUserType    = "No entendí tu respuesta. Por favor indica si eres un cliente nuevo o ya tienes cuenta con nosotros."
	existingIDInvalid  = "❌ %s Por favor ingresa tu identificación correctamente:"
	greetExistingUser  = "¡Hola %s! 😊 ¿En qué puedo ayudarte hoy?"
	existingIDNotFound = "No encontré tu identificación en nuestro sistema. ¿Te gustaría registrarte como cliente nuevo?"
	fieldInvalid       = "❌ %s Por favor intenta de nuevo:"
	idAlreadyExists    = "❌ Esta identificación ya está registrada. ¿Eres un cliente frecuente? Si es así, puedes identificarte directamente."
	askFullName        = "✅ Perfecto! Ahora necesito tu nombre completo:"
	askPhone           = "✅ Excelente! Ahora necesito tu número de teléfono (10 dígitos, iniciando por 3 o 6):"
	askEmail           = "✅ Perfecto! Por último, necesito tu correo electrónico:"
	registrationDone   = "🎉 ¡Registro completado exitosamente! Bienvenido/a %s. ¿En qué puedo ayudarte hoy?"
	registrationFailed = "❌ Hubo un error en el registro. Por favor contacta al servicio al cliente."
	lookupFailed       = "Lo siento, no pude verificar tu identificación en este momento. Por favor intenta de nuevo."
	activeChatFailed   = "Lo siento, hubo un problema procesando tu consulta. Por favor intenta de nuevo o contacta al servicio al cliente."

	sourcesFooter     = "\n\n📚 *Información obtenida de: %s*"
	suggestionsHeader = "\n\n💡 **También podrías preguntar:**\n"
	suggestionLine    = "• %s\n"
	debugFooter       = "\n\n🔍 *Score: %.2f, Fuentes: %d*"
)

const capabilitiesTemplate = `¡Hola%s! 🤖 Soy tu asistente virtual del supermercado y puedo ayudarte proporcionando información sobre:

🕒 **Horarios de Atención**
• Horarios de todas nuestras sucursales
• Días y horas específicas de operación
• Información sobre horarios especiales

🎁 **Promociones y Ofertas**
• Programa "Suma y Gana" 
• Descuentos y promociones vigentes
• Cómo acumular y redimir puntos

❓ **Preguntas Frecuentes**
• Métodos de pago
• Políticas de la tienda
• Procedimientos y servicios
• Información general del supermercado

**¿Cómo funciono?**
Busco en nuestra base de información oficial para darte respuestas precisas y actualizadas. Simplemente pregúntame lo que necesites saber sobre cualquiera de estos temas.

**Ejemplos de preguntas que puedes hacerme:**
• "¿Cuáles son los horarios de la sucursal Centro?"
• "¿Cómo funciona el programa Suma y Gana?"
• "¿Qué promociones tienen disponibles?"
• "¿Qué métodos de pago aceptan?"

¿En qué te gustaría que te ayude hoy? 😊`
