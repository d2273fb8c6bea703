package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"edu-ai-assistant/models"
	"edu-ai-assistant/services"
	"edu-ai-assistant/utils"
)

// SetupCatalogRoutes exposes plain CRUD over the course catalog. These
// endpoints carry no behavior beyond data access.
func SetupCatalogRoutes(router *gin.Engine, catalog *services.CatalogService) {
	api := router.Group("/api")

	courses := api.Group("/courses")
	courses.POST("", func(c *gin.Context) {
		var course models.Course
		if err := c.ShouldBindJSON(&course); err != nil {
			utils.RespondWithBadRequest(c, "Invalid course payload", gin.H{"error": err.Error()})
			return
		}
		if err := catalog.CreateCourse(c.Request.Context(), &course); err != nil {
			utils.RespondWithInternalError(c, "Failed to create course", nil)
			return
		}
		c.JSON(http.StatusCreated, course)
	})
	courses.GET("", func(c *gin.Context) {
		maxEdu := -1
		if raw := c.Query("maxEdu"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				utils.RespondWithBadRequest(c, "maxEdu must be an integer", nil)
				return
			}
			maxEdu = parsed
		}
		list, err := catalog.ListCourses(c.Request.Context(), c.Query("type"), maxEdu)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list courses", nil)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	courses.GET("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		course, err := catalog.GetCourse(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Course not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load course", nil)
			return
		}
		c.JSON(http.StatusOK, course)
	})
	courses.PUT("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		var course models.Course
		if err := c.ShouldBindJSON(&course); err != nil {
			utils.RespondWithBadRequest(c, "Invalid course payload", gin.H{"error": err.Error()})
			return
		}
		err := catalog.UpdateCourse(c.Request.Context(), id, &course)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Course not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update course", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	})
	courses.DELETE("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		err := catalog.DeleteCourse(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Course not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete course", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	schools := api.Group("/schools")
	schools.POST("", func(c *gin.Context) {
		var school models.School
		if err := c.ShouldBindJSON(&school); err != nil {
			utils.RespondWithBadRequest(c, "Invalid school payload", gin.H{"error": err.Error()})
			return
		}
		if err := catalog.CreateSchool(c.Request.Context(), &school); err != nil {
			utils.RespondWithInternalError(c, "Failed to create school", nil)
			return
		}
		c.JSON(http.StatusCreated, school)
	})
	schools.GET("", func(c *gin.Context) {
		list, err := catalog.ListSchools(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list schools", nil)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	schools.GET("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		school, err := catalog.GetSchool(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "School not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load school", nil)
			return
		}
		c.JSON(http.StatusOK, school)
	})
	schools.PUT("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		var school models.School
		if err := c.ShouldBindJSON(&school); err != nil {
			utils.RespondWithBadRequest(c, "Invalid school payload", gin.H{"error": err.Error()})
			return
		}
		err := catalog.UpdateSchool(c.Request.Context(), id, &school)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "School not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update school", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	})
	schools.DELETE("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		err := catalog.DeleteSchool(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "School not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete school", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	reservations := api.Group("/reservations")
	reservations.POST("", func(c *gin.Context) {
		var reservation models.CourseReservation
		if err := c.ShouldBindJSON(&reservation); err != nil {
			utils.RespondWithBadRequest(c, "Invalid reservation payload", gin.H{"error": err.Error()})
			return
		}
		if err := catalog.CreateReservation(c.Request.Context(), &reservation); err != nil {
			utils.RespondWithBadRequest(c, "Failed to create reservation", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, reservation)
	})
	reservations.GET("", func(c *gin.Context) {
		list, err := catalog.ListReservations(c.Request.Context(), c.Query("studentName"))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list reservations", nil)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	reservations.GET("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		reservation, err := catalog.GetReservation(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Reservation not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load reservation", nil)
			return
		}
		c.JSON(http.StatusOK, reservation)
	})
	reservations.PUT("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		var reservation models.CourseReservation
		if err := c.ShouldBindJSON(&reservation); err != nil {
			utils.RespondWithBadRequest(c, "Invalid reservation payload", gin.H{"error": err.Error()})
			return
		}
		err := catalog.UpdateReservation(c.Request.Context(), id, &reservation)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Reservation not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update reservation", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	})
	reservations.DELETE("/:id", func(c *gin.Context) {
		id, ok := objectID(c)
		if !ok {
			return
		}
		err := catalog.DeleteReservation(c.Request.Context(), id)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Reservation not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete reservation", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})
}

func objectID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid id format", nil)
		return primitive.NilObjectID, false
	}
	return id, true
}
