package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FleetDesk API",
        "description": "Back-office API for vehicle rental operations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scheduler", "description": "Booking timeline window and mutations"},
        {"name": "Bookings", "description": "Booking lifecycle management"},
        {"name": "Cars", "description": "Fleet management"},
        {"name": "Drivers", "description": "Driver roster"},
        {"name": "Partners", "description": "Fleet partner companies"},
        {"name": "Documents", "description": "KYC compliance documents"},
        {"name": "Exports", "description": "Asynchronous report exports"},
        {"name": "Analytics", "description": "Utilisation and payout analytics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/scheduler/window": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get the scheduler window for a month",
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "YYYY-MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/bookings/{id}/status": {
            "patch": {
                "tags": ["Scheduler"],
                "summary": "Change a booking's status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBookingStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/bookings/{id}/resize": {
            "patch": {
                "tags": ["Scheduler"],
                "summary": "Move a booking's end date",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResizeBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/bookings/{id}/early-return": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Settle an early vehicle return",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EarlyReturnRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/bookings/{id}/approve": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Approve a pending booking request",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Override required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/maintenance": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Block a car for maintenance",
                "parameters": [
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MaintenanceBlockRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "parameters": [
                    {"name": "carId", "in": "query", "type": "string"},
                    {"name": "driverId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "UpdateBookingStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["pending", "confirmed", "completed", "maintenance"]}
            }
        },
        "ResizeBookingRequest": {
            "type": "object",
            "properties": {
                "new_end_at": {"type": "string", "format": "date-time"}
            }
        },
        "EarlyReturnRequest": {
            "type": "object",
            "properties": {
                "return_at": {"type": "string", "format": "date-time"},
                "should_refund": {"type": "boolean"}
            }
        },
        "MaintenanceBlockRequest": {
            "type": "object",
            "properties": {
                "car_id": {"type": "string"},
                "start_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"}
            }
        },
        "ApproveBookingRequest": {
            "type": "object",
            "properties": {
                "original_car_id": {"type": "string"},
                "override": {"type": "boolean"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["bookings", "fleet_utilization", "partner_payouts", "agreement"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "from": {"type": "string", "format": "date-time"},
                "to": {"type": "string", "format": "date-time"},
                "car_id": {"type": "string"},
                "booking_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
