package i18n

var catalog = map[string]map[string]string{
	"en": {
		"app.name": "CNA Billing",

		"nav.dashboard": "Dashboard",
		"nav.clients":   "Clients",
		"nav.estimates": "Estimates",
		"nav.invoices":  "Invoices",
		"nav.users":     "Users",
		"nav.login":     "Log in",
		"nav.register":  "Register",
		"nav.logout":    "Log out",
		"nav.language":  "Language",

		"common.save":            "Save",
		"common.cancel":          "Cancel",
		"common.edit":            "Edit",
		"common.delete":          "Delete",
		"common.view":            "View",
		"common.back":            "Back",
		"common.search":          "Search",
		"common.actions":         "Actions",
		"common.status":          "Status",
		"common.all":             "All",
		"common.subtotal":        "Subtotal",
		"common.tax":             "Tax",
		"common.tax_rate":        "Tax rate (%)",
		"common.total":           "Total",
		"common.notes":           "Notes",
		"common.description":     "Description",
		"common.quantity":        "Quantity",
		"common.unit_price":      "Unit price",
		"common.items":           "Line items",
		"common.add_item":        "Add line",
		"common.client":          "Client",
		"common.title":           "Title",
		"common.created":         "Created",
		"common.created_by":      "Created by",
		"common.no_records":      "No records found.",
		"common.previous":        "Previous",
		"common.next":            "Next",
		"common.showing":         "Showing %d to %d of %d",
		"common.confirm_delete":  "Are you sure you want to delete this?",
		"common.invalid_request": "Invalid request",
		"common.select":          "Select...",

		"auth.login":             "Log in",
		"auth.register":          "Create account",
		"auth.email":             "Email",
		"auth.password":          "Password",
		"auth.password_confirm":  "Confirm password",
		"auth.remember":          "Remember me",
		"auth.username":          "Username",
		"auth.first_name":        "First name",
		"auth.last_name":         "Last name",
		"auth.login_success":     "Welcome back, %s!",
		"auth.login_failed":      "Invalid email or password",
		"auth.account_inactive":  "Your account has been deactivated",
		"auth.rate_limited":      "Too many login attempts. Please try again later.",
		"auth.logout_success":    "You have been logged out",
		"auth.register_success":  "Registration successful. Please log in.",
		"auth.register_failed":   "Registration failed. Please try again.",
		"auth.access_denied":     "Please log in to access this page",
		"auth.forbidden":         "You do not have permission to access this page",
		"auth.password_mismatch": "Passwords do not match",
		"auth.email_taken":       "This email is already registered",
		"auth.username_taken":    "This username is already taken",
		"auth.no_account":        "Don't have an account?",
		"auth.have_account":      "Already registered?",

		"validation.required": "The %s field is required",
		"validation.email":    "The %s field must be a valid email address",
		"validation.phone":    "The %s field must be a valid phone number",
		"validation.min":      "The %s field must be at least %d characters",
		"validation.max":      "The %s field may not be greater than %d characters",
		"validation.numeric":  "The %s field must be a number",
		"validation.date":     "The %s field must be a valid date",
		"validation.positive": "The %s field must be greater than zero",
		"validation.decimals": "The %s field may not have more than %d decimal places",
		"validation.failed":   "Please correct the errors below",

		"field.first_name":  "first name",
		"field.last_name":   "last name",
		"field.company":     "company",
		"field.email":       "email",
		"field.phone":       "phone",
		"field.address":     "address",
		"field.city":        "city",
		"field.state":       "state",
		"field.zip_code":    "zip code",
		"field.notes":       "notes",
		"field.username":    "username",
		"field.password":    "password",
		"field.client_id":   "client",
		"field.title":       "title",
		"field.tax_rate":    "tax rate",
		"field.valid_until": "valid until",
		"field.due_date":    "due date",
		"field.items":       "line items",

		"dashboard.title":          "Dashboard",
		"dashboard.welcome":        "Welcome, %s",
		"dashboard.total_clients":  "Total clients",
		"dashboard.recent_clients": "Recent clients",
		"dashboard.unpaid":         "Unpaid invoices",
		"dashboard.revenue":        "Monthly revenue",
		"dashboard.billed":         "Billed",
		"dashboard.paid":           "Paid",
		"dashboard.month":          "Month",
		"dashboard.count":          "Invoices",

		"client.title":              "Clients",
		"client.new":                "New client",
		"client.edit":               "Edit client",
		"client.name":               "Name",
		"client.company":            "Company",
		"client.phone":              "Phone",
		"client.address":            "Address",
		"client.city":               "City",
		"client.state":              "State",
		"client.zip_code":           "Zip code",
		"client.created":            "Client created successfully",
		"client.updated":            "Client updated successfully",
		"client.deleted":            "Client deleted successfully",
		"client.not_found":          "Client not found",
		"client.email_taken":        "A client with this email already exists",
		"client.has_documents":      "Client has estimates or invoices and cannot be deleted",
		"client.create_failed":      "Failed to create client",
		"client.update_failed":      "Failed to update client",
		"client.delete_failed":      "Failed to delete client",
		"client.stats":              "Summary",
		"client.total_billed":       "Total billed",
		"client.total_paid":         "Total paid",
		"client.search_placeholder": "Name, company, email or phone",

		"estimate.title":             "Estimates",
		"estimate.new":               "New estimate",
		"estimate.edit":              "Edit estimate",
		"estimate.number":            "Estimate #",
		"estimate.valid_until":       "Valid until",
		"estimate.created":           "Estimate created successfully",
		"estimate.updated":           "Estimate updated successfully",
		"estimate.deleted":           "Estimate deleted successfully",
		"estimate.not_found":         "Estimate not found",
		"estimate.converted":         "Estimate converted to invoice successfully",
		"estimate.already_converted": "Estimate has already been converted to invoice",
		"estimate.convert":           "Convert to invoice",
		"estimate.convert_failed":    "Failed to convert estimate",
		"estimate.create_failed":     "Failed to create estimate",
		"estimate.update_failed":     "Failed to update estimate",
		"estimate.delete_failed":     "Failed to delete estimate",

		"invoice.title":            "Invoices",
		"invoice.new":              "New invoice",
		"invoice.edit":             "Edit invoice",
		"invoice.number":           "Invoice #",
		"invoice.due_date":         "Due date",
		"invoice.paid_date":        "Paid on",
		"invoice.amount_paid":      "Amount paid",
		"invoice.balance_due":      "Balance due",
		"invoice.from_estimate":    "From estimate",
		"invoice.record_payment":   "Record payment",
		"invoice.payment_amount":   "Amount",
		"invoice.payment_note":     "Note",
		"invoice.export":           "Export to Excel",
		"invoice.export_link":      "Share export link",
		"invoice.created":          "Invoice created successfully",
		"invoice.updated":          "Invoice updated successfully",
		"invoice.deleted":          "Invoice deleted successfully",
		"invoice.not_found":        "Invoice not found",
		"invoice.payment_recorded": "Payment recorded successfully",
		"invoice.payment_positive": "Payment amount must be greater than zero",
		"invoice.payment_exceeds":  "Payment amount cannot exceed balance due",
		"invoice.payment_failed":   "Failed to record payment",
		"invoice.create_failed":    "Failed to create invoice",
		"invoice.update_failed":    "Failed to update invoice",
		"invoice.delete_failed":    "Failed to delete invoice",
		"invoice.export_failed":    "Failed to export invoices",
		"invoice.overdue":          "Overdue",

		"status.updated":   "Status updated successfully",
		"status.invalid":   "Invalid status",
		"status.failed":    "Failed to update status",
		"status.draft":     "Draft",
		"status.sent":      "Sent",
		"status.approved":  "Approved",
		"status.rejected":  "Rejected",
		"status.expired":   "Expired",
		"status.partial":   "Partially paid",
		"status.paid":      "Paid",
		"status.overdue":   "Overdue",
		"status.cancelled": "Cancelled",

		"user.title":         "Users",
		"user.role":          "Role",
		"user.active":        "Active",
		"user.inactive":      "Inactive",
		"user.last_login":    "Last login",
		"user.activate":      "Activate",
		"user.deactivate":    "Deactivate",
		"user.make_admin":    "Make admin",
		"user.make_user":     "Make user",
		"user.activated":     "User activated",
		"user.deactivated":   "User deactivated",
		"user.role_updated":  "Role updated",
		"user.not_found":     "User not found",
		"user.self":          "You cannot change your own account",
		"user.update_failed": "Failed to update user",
		"role.admin":         "Administrator",
		"role.user":          "User",

		"errors.not_found":      "Page not found",
		"errors.not_found_text": "The page you are looking for does not exist.",
		"errors.server":         "Something went wrong",
		"errors.server_text":    "An unexpected error occurred. Please try again later.",
		"errors.too_many":       "Too many requests",
	},
	"es": {
		"app.name": "CNA Facturación",

		"nav.dashboard": "Panel",
		"nav.clients":   "Clientes",
		"nav.estimates": "Presupuestos",
		"nav.invoices":  "Facturas",
		"nav.users":     "Usuarios",
		"nav.login":     "Iniciar sesión",
		"nav.register":  "Registrarse",
		"nav.logout":    "Cerrar sesión",
		"nav.language":  "Idioma",

		"common.save":            "Guardar",
		"common.cancel":          "Cancelar",
		"common.edit":            "Editar",
		"common.delete":          "Eliminar",
		"common.view":            "Ver",
		"common.back":            "Volver",
		"common.search":          "Buscar",
		"common.actions":         "Acciones",
		"common.status":          "Estado",
		"common.all":             "Todos",
		"common.subtotal":        "Subtotal",
		"common.tax":             "Impuesto",
		"common.tax_rate":        "Tasa de impuesto (%)",
		"common.total":           "Total",
		"common.notes":           "Notas",
		"common.description":     "Descripción",
		"common.quantity":        "Cantidad",
		"common.unit_price":      "Precio unitario",
		"common.items":           "Conceptos",
		"common.add_item":        "Añadir línea",
		"common.client":          "Cliente",
		"common.title":           "Título",
		"common.created":         "Creado",
		"common.created_by":      "Creado por",
		"common.no_records":      "No se encontraron registros.",
		"common.previous":        "Anterior",
		"common.next":            "Siguiente",
		"common.showing":         "Mostrando %d a %d de %d",
		"common.confirm_delete":  "¿Seguro que desea eliminar esto?",
		"common.invalid_request": "Solicitud no válida",
		"common.select":          "Seleccione...",

		"auth.login":             "Iniciar sesión",
		"auth.register":          "Crear cuenta",
		"auth.email":             "Correo electrónico",
		"auth.password":          "Contraseña",
		"auth.password_confirm":  "Confirmar contraseña",
		"auth.remember":          "Recordarme",
		"auth.username":          "Usuario",
		"auth.first_name":        "Nombre",
		"auth.last_name":         "Apellido",
		"auth.login_success":     "¡Bienvenido de nuevo, %s!",
		"auth.login_failed":      "Correo o contraseña incorrectos",
		"auth.account_inactive":  "Su cuenta ha sido desactivada",
		"auth.rate_limited":      "Demasiados intentos. Inténtelo más tarde.",
		"auth.logout_success":    "Ha cerrado sesión",
		"auth.register_success":  "Registro completado. Inicie sesión.",
		"auth.register_failed":   "El registro falló. Inténtelo de nuevo.",
		"auth.access_denied":     "Inicie sesión para acceder a esta página",
		"auth.forbidden":         "No tiene permiso para acceder a esta página",
		"auth.password_mismatch": "Las contraseñas no coinciden",
		"auth.email_taken":       "Este correo ya está registrado",
		"auth.username_taken":    "Este usuario ya existe",
		"auth.no_account":        "¿No tiene cuenta?",
		"auth.have_account":      "¿Ya está registrado?",

		"validation.required": "El campo %s es obligatorio",
		"validation.email":    "El campo %s debe ser un correo válido",
		"validation.phone":    "El campo %s debe ser un teléfono válido",
		"validation.min":      "El campo %s debe tener al menos %d caracteres",
		"validation.max":      "El campo %s no puede tener más de %d caracteres",
		"validation.numeric":  "El campo %s debe ser un número",
		"validation.date":     "El campo %s debe ser una fecha válida",
		"validation.positive": "El campo %s debe ser mayor que cero",
		"validation.decimals": "El campo %s no puede tener más de %d decimales",
		"validation.failed":   "Corrija los errores indicados",

		"field.first_name":  "nombre",
		"field.last_name":   "apellido",
		"field.company":     "empresa",
		"field.email":       "correo",
		"field.phone":       "teléfono",
		"field.address":     "dirección",
		"field.city":        "ciudad",
		"field.state":       "estado",
		"field.zip_code":    "código postal",
		"field.notes":       "notas",
		"field.username":    "usuario",
		"field.password":    "contraseña",
		"field.client_id":   "cliente",
		"field.title":       "título",
		"field.tax_rate":    "tasa de impuesto",
		"field.valid_until": "válido hasta",
		"field.due_date":    "fecha de vencimiento",
		"field.items":       "conceptos",

		"dashboard.title":          "Panel",
		"dashboard.welcome":        "Bienvenido, %s",
		"dashboard.total_clients":  "Clientes totales",
		"dashboard.recent_clients": "Clientes recientes",
		"dashboard.unpaid":         "Facturas pendientes",
		"dashboard.revenue":        "Ingresos mensuales",
		"dashboard.billed":         "Facturado",
		"dashboard.paid":           "Cobrado",
		"dashboard.month":          "Mes",
		"dashboard.count":          "Facturas",

		"client.title":              "Clientes",
		"client.new":                "Nuevo cliente",
		"client.edit":               "Editar cliente",
		"client.name":               "Nombre",
		"client.company":            "Empresa",
		"client.phone":              "Teléfono",
		"client.address":            "Dirección",
		"client.city":               "Ciudad",
		"client.state":              "Estado",
		"client.zip_code":           "Código postal",
		"client.created":            "Cliente creado correctamente",
		"client.updated":            "Cliente actualizado correctamente",
		"client.deleted":            "Cliente eliminado correctamente",
		"client.not_found":          "Cliente no encontrado",
		"client.email_taken":        "Ya existe un cliente con este correo",
		"client.has_documents":      "El cliente tiene presupuestos o facturas y no puede eliminarse",
		"client.create_failed":      "No se pudo crear el cliente",
		"client.update_failed":      "No se pudo actualizar el cliente",
		"client.delete_failed":      "No se pudo eliminar el cliente",
		"client.stats":              "Resumen",
		"client.total_billed":       "Total facturado",
		"client.total_paid":         "Total cobrado",
		"client.search_placeholder": "Nombre, empresa, correo o teléfono",

		"estimate.title":             "Presupuestos",
		"estimate.new":               "Nuevo presupuesto",
		"estimate.edit":              "Editar presupuesto",
		"estimate.number":            "Presupuesto n.º",
		"estimate.valid_until":       "Válido hasta",
		"estimate.created":           "Presupuesto creado correctamente",
		"estimate.updated":           "Presupuesto actualizado correctamente",
		"estimate.deleted":           "Presupuesto eliminado correctamente",
		"estimate.not_found":         "Presupuesto no encontrado",
		"estimate.converted":         "Presupuesto convertido en factura correctamente",
		"estimate.already_converted": "El presupuesto ya fue convertido en factura",
		"estimate.convert":           "Convertir en factura",
		"estimate.convert_failed":    "No se pudo convertir el presupuesto",
		"estimate.create_failed":     "No se pudo crear el presupuesto",
		"estimate.update_failed":     "No se pudo actualizar el presupuesto",
		"estimate.delete_failed":     "No se pudo eliminar el presupuesto",

		"invoice.title":            "Facturas",
		"invoice.new":              "Nueva factura",
		"invoice.edit":             "Editar factura",
		"invoice.number":           "Factura n.º",
		"invoice.due_date":         "Vencimiento",
		"invoice.paid_date":        "Pagada el",
		"invoice.amount_paid":      "Importe pagado",
		"invoice.balance_due":      "Saldo pendiente",
		"invoice.from_estimate":    "Desde presupuesto",
		"invoice.record_payment":   "Registrar pago",
		"invoice.payment_amount":   "Importe",
		"invoice.payment_note":     "Nota",
		"invoice.export":           "Exportar a Excel",
		"invoice.export_link":      "Compartir enlace de exportación",
		"invoice.created":          "Factura creada correctamente",
		"invoice.updated":          "Factura actualizada correctamente",
		"invoice.deleted":          "Factura eliminada correctamente",
		"invoice.not_found":        "Factura no encontrada",
		"invoice.payment_recorded": "Pago registrado correctamente",
		"invoice.payment_positive": "El importe del pago debe ser mayor que cero",
		"invoice.payment_exceeds":  "El importe del pago no puede superar el saldo pendiente",
		"invoice.payment_failed":   "No se pudo registrar el pago",
		"invoice.create_failed":    "No se pudo crear la factura",
		"invoice.update_failed":    "No se pudo actualizar la factura",
		"invoice.delete_failed":    "No se pudo eliminar la factura",
		"invoice.export_failed":    "No se pudieron exportar las facturas",
		"invoice.overdue":          "Vencida",

		"status.updated":   "Estado actualizado correctamente",
		"status.invalid":   "Estado no válido",
		"status.failed":    "No se pudo actualizar el estado",
		"status.draft":     "Borrador",
		"status.sent":      "Enviado",
		"status.approved":  "Aprobado",
		"status.rejected":  "Rechazado",
		"status.expired":   "Caducado",
		"status.partial":   "Pago parcial",
		"status.paid":      "Pagada",
		"status.overdue":   "Vencida",
		"status.cancelled": "Cancelada",

		"user.title":         "Usuarios",
		"user.role":          "Rol",
		"user.active":        "Activo",
		"user.inactive":      "Inactivo",
		"user.last_login":    "Último acceso",
		"user.activate":      "Activar",
		"user.deactivate":    "Desactivar",
		"user.make_admin":    "Hacer administrador",
		"user.make_user":     "Hacer usuario",
		"user.activated":     "Usuario activado",
		"user.deactivated":   "Usuario desactivado",
		"user.role_updated":  "Rol actualizado",
		"user.not_found":     "Usuario no encontrado",
		"user.self":          "No puede modificar su propia cuenta",
		"user.update_failed": "No se pudo actualizar el usuario",
		"role.admin":         "Administrador",
		"role.user":          "Usuario",

		"errors.not_found":      "Página no encontrada",
		"errors.not_found_text": "La página que busca no existe.",
		"errors.server":         "Algo salió mal",
		"errors.server_text":    "Ocurrió un error inesperado. Inténtelo más tarde.",
		"errors.too_many":       "Demasiadas solicitudes",
	},
}
