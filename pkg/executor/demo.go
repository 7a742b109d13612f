package executor

// Demo fixtures returned instead of live queries when DEMO_MODE is on.
// Shapes mirror the real query outputs so the composer behaves identically.

func demoRows(queryID string) []map[string]any {
	switch queryID {
	case "kpi_sales_summary":
		return []map[string]any{{
			"total_sales":     4567890.50,
			"total_orders":    312,
			"avg_order_value": 14640.03,
			"total_units":     451,
		}}

	case "ts_sales_by_day", "sales_by_month":
		return []map[string]any{
			{"date": "2025-12-01", "value": 145200.00, "order_count": 11},
			{"date": "2025-12-02", "value": 189750.50, "order_count": 14},
			{"date": "2025-12-03", "value": 98300.00, "order_count": 7},
			{"date": "2025-12-04", "value": 215600.25, "order_count": 16},
			{"date": "2025-12-05", "value": 176450.00, "order_count": 13},
			{"date": "2025-12-06", "value": 243100.75, "order_count": 18},
			{"date": "2025-12-07", "value": 132800.00, "order_count": 9},
		}

	case "top_products_by_revenue", "top_products_by_sales":
		return []map[string]any{
			{"rank": 1, "id": "MLA001", "title": "Silla Gamer Pro RGB", "value": 892400.00, "units_sold": 42},
			{"rank": 2, "id": "MLA002", "title": "Escritorio Elevable 120cm", "value": 654300.50, "units_sold": 28},
			{"rank": 3, "id": "MLA003", "title": "Monitor 27 Pulgadas 144Hz", "value": 521750.00, "units_sold": 19},
			{"rank": 4, "id": "MLA004", "title": "Teclado Mecanico Switch Red", "value": 318200.00, "units_sold": 53},
			{"rank": 5, "id": "MLA005", "title": "Auriculares Inalambricos BT", "value": 265900.25, "units_sold": 61},
		}

	case "sales_by_channel":
		return []map[string]any{
			{"rank": 1, "id": "fulfillment", "title": "fulfillment", "value": 2890500.00, "order_count": 198},
			{"rank": 2, "id": "cross_docking", "title": "cross_docking", "value": 1245300.50, "order_count": 87},
			{"rank": 3, "id": "self_service", "title": "self_service", "value": 432090.00, "order_count": 27},
		}

	case "recent_orders":
		return []map[string]any{
			{"id": "200001", "buyer": "COMPRADOR_A", "producto": "Silla Gamer Pro RGB", "monto": 21250.00, "cantidad": 1, "estado": "paid", "envio": "shipped", "fecha": "2025-12-22"},
			{"id": "200002", "buyer": "COMPRADOR_B", "producto": "Monitor 27 Pulgadas 144Hz", "monto": 27460.00, "cantidad": 1, "estado": "paid", "envio": "delivered", "fecha": "2025-12-22"},
			{"id": "200003", "buyer": "COMPRADOR_C", "producto": "Teclado Mecanico Switch Red", "monto": 6005.50, "cantidad": 2, "estado": "paid", "envio": "pending", "fecha": "2025-12-21"},
		}

	case "products_inventory":
		return []map[string]any{
			{"id": "MLA001", "title": "Silla Gamer Pro RGB", "sku": "SG-001", "price": 21250.00, "stock": 84, "status": "active", "sold": 42},
			{"id": "MLA004", "title": "Teclado Mecanico Switch Red", "sku": "TM-004", "price": 6005.50, "stock": 37, "status": "active", "sold": 53},
			{"id": "MLA002", "title": "Escritorio Elevable 120cm", "sku": "EE-002", "price": 23368.00, "stock": 12, "status": "active", "sold": 28},
		}

	case "products_low_stock":
		return []map[string]any{
			{"id": "MLA003", "title": "Monitor 27 Pulgadas 144Hz", "sku": "MN-003", "stock": 2, "status": "CRITICO"},
			{"id": "MLA005", "title": "Auriculares Inalambricos BT", "sku": "AU-005", "stock": 7, "status": "BAJO"},
		}

	case "stock_alerts":
		return []map[string]any{
			{"id": "MLA003", "title": "Monitor 27 Pulgadas 144Hz", "stock": 2, "days_cover": 3.5, "severity": "critical", "reorder_date": "2025-12-26"},
			{"id": "MLA005", "title": "Auriculares Inalambricos BT", "stock": 7, "days_cover": 8.2, "severity": "warning", "reorder_date": "2026-01-02"},
		}

	case "kpi_inventory_summary":
		return []map[string]any{{
			"critical_count": 1,
			"warning_count":  1,
			"ok_count":       14,
			"total_products": 16,
			"avg_days_cover": 21.4,
		}}

	case "ai_interactions_summary":
		return []map[string]any{{
			"total_interactions": 248,
			"escalated_count":    31,
			"escalation_rate":    12.5,
			"auto_responded":     217,
			"auto_response_rate": 87.5,
		}}

	case "recent_ai_interactions":
		return []map[string]any{
			{"id": "c1a2b3c4", "buyer": "COMPRADOR_D", "status": "closed", "case_type": "envio", "fecha": "2025-12-22 14:03"},
			{"id": "d5e6f7a8", "buyer": "COMPRADOR_E", "status": "open", "case_type": "producto", "fecha": "2025-12-22 11:47"},
		}

	case "escalated_cases":
		return []map[string]any{
			{"id": "e9f0a1b2", "buyer": "COMPRADOR_F", "mensaje": "Mi pedido no llego y ya pasaron 10 dias", "motivo": "demora en envio", "tipo": "envio", "estado": "pending", "prioridad": "high", "fuente": "mercadolibre", "fecha": "2025-12-21"},
		}

	case "interactions_by_case_type":
		return []map[string]any{
			{"rank": 1, "id": "envio", "title": "Envio", "value": 14},
			{"rank": 2, "id": "producto", "title": "Producto", "value": 9},
			{"rank": 3, "id": "devolucion", "title": "Devolucion", "value": 5},
		}

	case "preventa_summary":
		return []map[string]any{{
			"total_queries": 57,
			"answered":      49,
			"pending":       8,
			"answer_rate":   86.0,
		}}

	case "recent_preventa_queries":
		return []map[string]any{
			{"id": "p1", "buyer": "COMPRADOR_G", "pregunta": "Tienen stock en color negro?", "estado": "answered", "fecha": "2025-12-22"},
		}

	default:
		return nil
	}
}
