// Package i18n holds the message catalog for error codes and flash messages.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "es"

type ctxKey struct{}

var messages = map[string]map[string]string{
	"es": {
		"required":                  "Requerido",
		"too_short":                 "Debe tener al menos 6 caracteres",
		"mismatch":                  "Las contraseñas no coinciden",
		"invalid_email":             "Email inválido",
		"invalid_number":            "Debe ser un número válido",
		"must_be_non_negative":      "No puede ser negativo",
		"must_be_positive":          "Debe ser mayor que cero",
		"invalid_quantity":          "Cantidad no válida",
		"invalid_category":          "Categoría no válida",
		"use_cancel":                "Usa la opción cancelar para anular el pedido",
		"order_state_changed":       "El pedido cambió de estado, vuelve a intentarlo",
		"missing_permission":        "No tienes permisos para realizar esta acción",
		"validation_failed":         "Revisa los campos del formulario",
		"invalid_credentials":       "Email o contraseña incorrectos",
		"email_taken":               "El email ya está registrado",
		"user_not_found":            "Usuario no encontrado",
		"product_not_found":         "Producto no encontrado",
		"category_not_found":        "Categoría no encontrada",
		"order_not_found":           "Pedido no encontrado",
		"category_exists":           "La categoría ya existe",
		"category_has_products":     "No se puede eliminar la categoría porque tiene productos asociados",
		"product_has_orders":        "No se puede eliminar el producto porque figura en pedidos",
		"user_has_orders":           "No se puede eliminar el usuario porque tiene pedidos asociados",
		"cannot_delete_self":        "No puedes eliminarte a ti mismo",
		"last_admin":                "Debe existir al menos un administrador",
		"invalid_role":              "Rol no válido",
		"insufficient_stock":        "Stock insuficiente",
		"cart_empty":                "Tu carrito está vacío",
		"address_required":          "Debes registrar una dirección para el delivery",
		"phone_required":            "Debes registrar un teléfono de contacto",
		"invalid_state":             "Estado no válido",
		"invalid_courier":           "Repartidor no válido",
		"invalid_transition":        "El pedido no puede pasar a ese estado",
		"admin_required":            "No tienes permisos para realizar esta acción",
		"courier_role_required":     "No tienes permisos para entregar pedidos",
		"not_assigned_courier":      "Este pedido no está asignado a ti",
		"order_not_out_for_delivery": "Solo puedes entregar pedidos que están en camino",
		"cannot_cancel_delivered":   "No se pueden cancelar pedidos ya entregados",
		"customer_cancel_pending_or_confirmed_only": "Solo puedes cancelar pedidos pendientes o confirmados",
		"courier_cancel_requires_reason":            "Para cancelar debes proporcionar un motivo",
		"courier_cancel_in_progress_only":           "Solo puedes cancelar pedidos en preparación o en camino",
		"not_allowed_to_cancel":     "No tienes permisos para cancelar este pedido",
		"not_allowed_to_view":       "No tienes permisos para ver este pedido",
		"forbidden":                 "No tienes permisos para acceder a esta página",
		"unauthorized":              "Debes iniciar sesión",
		"internal_error":            "Ocurrió un error inesperado",
		"order_placed":              "Pedido realizado con éxito",
		"order_cancelled":           "Pedido cancelado",
		"order_already_cancelled":   "El pedido ya estaba cancelado",
		"order_delivered":           "Pedido marcado como entregado",
		"order_updated":             "Pedido actualizado",
		"cart_updated":              "Carrito actualizado",
		"saved":                     "Cambios guardados",
		"deleted":                   "Eliminado correctamente",
		"welcome":                   "Bienvenido",
		"logged_out":                "Sesión cerrada",
		"pending":                   "Pendiente",
		"confirmed":                 "Confirmado",
		"preparing":                 "En preparación",
		"out_for_delivery":          "En camino",
		"delivered":                 "Entregado",
		"cancelled":                 "Cancelado",
		"admin":                     "Administrador",
		"customer":                  "Cliente",
		"courier":                   "Repartidor",
		"invalid_body": "Solicitud inválida",
		"invalid_date": "Fecha inválida",
		"products": "Productos",
		"cart": "Carrito",
		"my_orders": "Mis pedidos",
		"deliveries": "Mis entregas",
		"profile": "Mi perfil",
		"logout": "Cerrar sesión",
		"login": "Iniciar sesión",
		"register": "Crear cuenta",
		"categories": "Categorías",
		"new_products": "Novedades",
		"add_to_cart": "Agregar al carrito",
		"out_of_stock": "Agotado",
		"all_categories": "Todas las categorías",
		"search": "Buscar",
		"no_results": "Sin resultados",
		"stock": "Stock",
		"related": "Productos relacionados",
		"password": "Contraseña",
		"full_name": "Nombre completo",
		"confirm_password": "Confirmar contraseña",
		"phone": "Teléfono",
		"address": "Dirección",
		"new_password": "Nueva contraseña",
		"save": "Guardar",
		"product": "Producto",
		"price": "Precio",
		"quantity": "Cantidad",
		"subtotal": "Subtotal",
		"update": "Actualizar",
		"remove": "Quitar",
		"total": "Total",
		"checkout": "Finalizar compra",
		"delivery": "Envío a domicilio",
		"pickup": "Retiro en tienda",
		"edit": "Editar",
		"place_order": "Confirmar pedido",
		"date": "Fecha",
		"state": "Estado",
		"order": "Pedido",
		"reason": "Motivo",
		"cancel_order": "Cancelar pedido",
		"orders_today": "Pedidos de hoy",
		"users": "Usuarios",
		"orders": "Pedidos",
		"new": "Nuevo",
		"category": "Categoría",
		"delete": "Eliminar",
		"name": "Nombre",
		"description": "Descripción",
		"image_url": "URL de imagen",
		"all_roles": "Todos los roles",
		"role": "Rol",
		"user": "Usuario",
		"all_states": "Todos los estados",
		"mark_delivered": "Marcar como entregado",
	},
	"en": {
		"required":                  "Required",
		"too_short":                 "Must be at least 6 characters",
		"mismatch":                  "Passwords do not match",
		"invalid_email":             "Invalid email",
		"invalid_number":            "Must be a valid number",
		"must_be_non_negative":      "Cannot be negative",
		"must_be_positive":          "Must be greater than zero",
		"invalid_quantity":          "Invalid quantity",
		"invalid_category":          "Invalid category",
		"use_cancel":                "Use cancel to void the order",
		"order_state_changed":       "The order changed state, please retry",
		"missing_permission":        "You are not allowed to perform this action",
		"validation_failed":         "Please check the form fields",
		"invalid_credentials":       "Wrong email or password",
		"email_taken":               "Email already registered",
		"user_not_found":            "User not found",
		"product_not_found":         "Product not found",
		"category_not_found":        "Category not found",
		"order_not_found":           "Order not found",
		"category_exists":           "Category already exists",
		"category_has_products":     "Category still has products",
		"product_has_orders":        "Product appears in existing orders",
		"user_has_orders":           "User has orders",
		"cannot_delete_self":        "You cannot delete yourself",
		"last_admin":                "At least one administrator must remain",
		"invalid_role":              "Invalid role",
		"insufficient_stock":        "Insufficient stock",
		"cart_empty":                "Your cart is empty",
		"address_required":          "An address is required for delivery",
		"phone_required":            "A contact phone is required",
		"invalid_state":             "Invalid state",
		"invalid_courier":           "Invalid courier",
		"invalid_transition":        "The order cannot move to that state",
		"admin_required":            "You are not allowed to perform this action",
		"courier_role_required":     "You are not allowed to deliver orders",
		"not_assigned_courier":      "This order is not assigned to you",
		"order_not_out_for_delivery": "Only orders out for delivery can be delivered",
		"cannot_cancel_delivered":   "Delivered orders cannot be cancelled",
		"customer_cancel_pending_or_confirmed_only": "Only pending or confirmed orders can be cancelled",
		"courier_cancel_requires_reason":            "A reason is required to cancel",
		"courier_cancel_in_progress_only":           "Only orders being prepared or out for delivery can be cancelled",
		"not_allowed_to_cancel":     "You are not allowed to cancel this order",
		"not_allowed_to_view":       "You are not allowed to view this order",
		"forbidden":                 "You are not allowed to access this page",
		"unauthorized":              "Please sign in",
		"internal_error":            "Unexpected error",
		"order_placed":              "Order placed",
		"order_cancelled":           "Order cancelled",
		"order_already_cancelled":   "Order was already cancelled",
		"order_delivered":           "Order marked as delivered",
		"order_updated":             "Order updated",
		"cart_updated":              "Cart updated",
		"saved":                     "Changes saved",
		"deleted":                   "Deleted",
		"welcome":                   "Welcome",
		"logged_out":                "Signed out",
		"pending":                   "Pending",
		"confirmed":                 "Confirmed",
		"preparing":                 "Preparing",
		"out_for_delivery":          "Out for delivery",
		"delivered":                 "Delivered",
		"cancelled":                 "Cancelled",
		"admin":                     "Administrator",
		"customer":                  "Customer",
		"courier":                   "Courier",
		"invalid_body": "Malformed request",
		"invalid_date": "Invalid date",
		"products": "Products",
		"cart": "Cart",
		"my_orders": "My orders",
		"deliveries": "My deliveries",
		"profile": "Profile",
		"logout": "Sign out",
		"login": "Sign in",
		"register": "Sign up",
		"categories": "Categories",
		"new_products": "New arrivals",
		"add_to_cart": "Add to cart",
		"out_of_stock": "Out of stock",
		"all_categories": "All categories",
		"search": "Search",
		"no_results": "No results",
		"stock": "Stock",
		"related": "Related products",
		"password": "Password",
		"full_name": "Full name",
		"confirm_password": "Confirm password",
		"phone": "Phone",
		"address": "Address",
		"new_password": "New password",
		"save": "Save",
		"product": "Product",
		"price": "Price",
		"quantity": "Quantity",
		"subtotal": "Subtotal",
		"update": "Update",
		"remove": "Remove",
		"total": "Total",
		"checkout": "Checkout",
		"delivery": "Home delivery",
		"pickup": "Store pickup",
		"edit": "Edit",
		"place_order": "Place order",
		"date": "Date",
		"state": "State",
		"order": "Order",
		"reason": "Reason",
		"cancel_order": "Cancel order",
		"orders_today": "Orders today",
		"users": "Users",
		"orders": "Orders",
		"new": "New",
		"category": "Category",
		"delete": "Delete",
		"name": "Name",
		"description": "Description",
		"image_url": "Image URL",
		"all_roles": "All roles",
		"role": "Role",
		"user": "User",
		"all_states": "All states",
		"mark_delivered": "Mark as delivered",
	},
}

// T translates code into lang, falling back to the default language, then to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// DetectLanguage picks the first supported language of an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(base) {
			return base
		}
	}
	return DefaultLang
}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFromContext returns the request language or the default.
func LangFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}
