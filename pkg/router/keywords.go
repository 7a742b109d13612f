package router

import (
	"regexp"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Conversational openers answered without touching the database.
var conversationalPatterns = []struct {
	re  *regexp.Regexp
	key string
}{
	{regexp.MustCompile(`^(hola|hey|buenas|buenos dias|buenas tardes|buenas noches|saludos)`), "greeting"},
	{regexp.MustCompile(`^(gracias|muchas gracias|thanks|ok|perfecto|genial|excelente)`), "thanks"},
	{regexp.MustCompile(`(que puedes hacer|que sabes hacer|ayuda|help|como funciona)`), "help"},
	{regexp.MustCompile(`(quien eres|que eres|como te llamas)`), "identity"},
}

// dataKeywords mark questions that need data. Includes common typos seen
// in real traffic.
var dataKeywords = []string{
	"cuanto", "cuantos", "cuantas", "total", "suma", "cantidad",
	"vendimos", "ventas", "venta", "vendido", "ventesa", "vetas",
	"ordenes", "orden", "pedidos", "pedido",
	"productos", "producto", "inventario", "stock",
	"escalados", "escalaciones", "casos",
	"agente", "ai", "bot", "interacciones",
	"preventa", "preguntas",
	"ingresos", "revenue", "facturacion",
	"promedio", "media", "kpi", "metricas",
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	"mes", "semana", "dia", "año", "trimestre", "periodo",
	"dime", "dame", "decime", "quiero", "necesito", "busco",
}

// dashboardKeywords mark questions that ask for visualization or an
// analytical read, which implies a full dashboard response.
var dashboardKeywords = []string{
	"mostrame", "muestrame", "muestra", "ver", "visualiza",
	"grafico", "graficos", "gráfico", "gráficos", "chart", "charts",
	"dashboard", "panel", "reporte",
	"tendencia", "tendencias", "evolucion", "evolución",
	"comparar", "comparacion", "comparación", "versus", "vs",
	"analisis", "análisis", "analiza", "analizar",
	"pareto", "insight", "insights", "resumen", "ticket",
	"reposicion", "reposición", "reponer", "necesitar", "recomendar",
	"bajo stock", "alta rotacion", "rotacion", "rotación",
	"quebrar", "quiebre", "agotar", "agotarse", "agotando", "faltante",
	"critico", "criticos", "crítico", "críticos", "alertas", "alerta",
	"proyeccion", "proyectar", "estimar", "predecir",
	"margen", "ganancia", "beneficio",
	"cyber", "cybermonday", "black friday", "hot sale",
	"crecimiento", "ciclo", "temporada",
	"como van", "como estan", "como esta", "que tal", "como vamos",
	"como fue", "como fueron", "como estuvo", "como me fue",
	"resume", "resumir", "resumime",
	"situacion", "estado de", "status",
	"ultimos", "ultimas", "recientes", "hoy", "ayer", "actualmente", "actual",
	"este mes", "esta semana", "este año",
	"cual fue", "cuál fue", "cual es", "cuál es",
	"mas vendido", "más vendido", "menos vendido",
	"mejor mes", "peor mes", "mejor dia", "peor dia",
	"que mes", "qué mes", "en que mes", "en qué mes",
	"que producto", "qué producto", "cuales", "cuáles",
	"aumentar stock", "aumentar inventario", "ponderar",
	"debo hacer", "deberia", "debería", "recomienda", "sugieres",
}

// domainKeywords score a question against each data domain. The highest
// score wins, sales being the default.
var domainKeywords = map[string][]string{
	models.DomainSales:         {"venta", "vendido", "orden", "pedido", "factura", "ingreso", "revenue"},
	models.DomainInventory:     {"producto", "inventario", "stock", "disponible"},
	models.DomainConversations: {"agente", "ai", "bot", "interaccion", "conversacion", "mensaje"},
	models.DomainEscalations:   {"escalado", "escalacion", "caso", "soporte", "ticket"},
	models.DomainPresale:       {"preventa", "pregunta", "consulta"},
}

// MatchedDomains lists every domain with at least one keyword hit in the
// question. More than one hit means the question straddles domains.
func MatchedDomains(question string) []string {
	q := strings.ToLower(question)
	var matched []string
	for _, domain := range []string{
		models.DomainSales,
		models.DomainInventory,
		models.DomainConversations,
		models.DomainEscalations,
		models.DomainPresale,
	} {
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(q, kw) {
				matched = append(matched, domain)
				break
			}
		}
	}
	return matched
}

// Canned answers for conversational turns.
var directResponses = map[string]string{
	"greeting": "Hola! Soy Mirador, tu asistente de datos. Puedo ayudarte con:\n" +
		"- Ventas y ordenes\n- Inventario y productos\n- Rendimiento del agente AI\n- Casos escalados\n\n" +
		"Que te gustaria saber?",
	"thanks": "De nada! Si tienes mas preguntas sobre tus datos, estoy aqui para ayudarte.",
	"help": "Puedo ayudarte a analizar tus datos de negocio. Prueba preguntas como:\n" +
		"- Como van las ventas?\n- Mostrame el inventario\n- Productos con stock bajo\n" +
		"- Como esta el agente AI?\n- Ultimas ordenes",
	"identity": "Soy Mirador, un asistente de BI potenciado por IA. Analizo tus datos de ventas, " +
		"inventario y servicio al cliente para darte insights accionables.",
	"clarification": "No estoy seguro de que necesitas. Puedo ayudarte con:\n" +
		"- Ventas y ordenes\n- Inventario y stock\n- Agente AI e interacciones\n- Casos escalados\n\n" +
		"Que area te interesa?",
}

// DirectResponse returns the canned answer for a conversational key, or
// the clarification fallback when the key is unknown.
func DirectResponse(key string) string {
	if text, ok := directResponses[key]; ok {
		return text
	}
	return directResponses["clarification"]
}
