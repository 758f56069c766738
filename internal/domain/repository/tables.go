package repository

import "devbook/internal/domain/model"

var UserTable = Table[model.User]{
	Name: "users",
	Columns: []string{
		"id", "name", "email", "username", "password", "role", "image", "headline", "bio",
		"password_updated_at", "reset_password_token", "reset_password_token_expires",
		"created_at", "updated_at",
	},
	Insertable: []string{"name", "email", "username", "password", "role"},
	Mutable:    []string{"name", "email", "username", "headline", "bio", "updated_at"},
	Filterable: []string{"role", "email", "username"},
	OrderBy:    "created_at ASC",
	Fields: func(u *model.User) []interface{} {
		return []interface{}{
			&u.ID, &u.Name, &u.Email, &u.Username, &u.Password, &u.Role, &u.Image, &u.Headline, &u.Bio,
			&u.PasswordUpdatedAt, &u.ResetPasswordToken, &u.ResetPasswordTokenExpires,
			&u.CreatedAt, &u.UpdatedAt,
		}
	},
}

var SessionTable = Table[model.Session]{
	Name:       "sessions",
	Columns:    []string{"id", "user_id", "expires", "created_at"},
	Insertable: []string{"user_id", "expires"},
	Filterable: []string{"user_id"},
	Fields: func(s *model.Session) []interface{} {
		return []interface{}{&s.ID, &s.UserID, &s.Expires, &s.CreatedAt}
	},
}

var PostTable = Table[model.Post]{
	Name:       "posts",
	Columns:    []string{"id", "user_id", "body", "created_at", "updated_at"},
	Insertable: []string{"user_id", "body"},
	Mutable:    []string{"body", "updated_at"},
	Filterable: []string{"user_id"},
	Fields: func(p *model.Post) []interface{} {
		return []interface{}{&p.ID, &p.UserID, &p.Body, &p.CreatedAt, &p.UpdatedAt}
	},
}

var CommentTable = Table[model.Comment]{
	Name:       "comments",
	Columns:    []string{"id", "user_id", "post_id", "parent_comment_id", "body", "created_at", "updated_at"},
	Insertable: []string{"user_id", "post_id", "parent_comment_id", "body"},
	Mutable:    []string{"body", "updated_at"},
	Filterable: []string{"user_id", "post_id", "parent_comment_id"},
	OrderBy:    "created_at ASC",
	Fields: func(c *model.Comment) []interface{} {
		return []interface{}{&c.ID, &c.UserID, &c.PostID, &c.ParentCommentID, &c.Body, &c.CreatedAt, &c.UpdatedAt}
	},
}

var PostLikeTable = Table[model.PostLike]{
	Name:       "post_likes",
	Columns:    []string{"id", "user_id", "post_id", "created_at"},
	Insertable: []string{"user_id", "post_id"},
	Filterable: []string{"user_id", "post_id"},
	Fields: func(l *model.PostLike) []interface{} {
		return []interface{}{&l.ID, &l.UserID, &l.PostID, &l.CreatedAt}
	},
}

var CommentLikeTable = Table[model.CommentLike]{
	Name:       "comment_likes",
	Columns:    []string{"id", "user_id", "comment_id", "created_at"},
	Insertable: []string{"user_id", "comment_id"},
	Filterable: []string{"user_id", "comment_id"},
	Fields: func(l *model.CommentLike) []interface{} {
		return []interface{}{&l.ID, &l.UserID, &l.CommentID, &l.CreatedAt}
	},
}

var AddressTable = Table[model.Address]{
	Name:       "addresses",
	Columns:    []string{"id", "user_id", "street", "city", "state", "country", "postal_code", "created_at", "updated_at"},
	Insertable: []string{"user_id", "street", "city", "state", "country", "postal_code"},
	Mutable:    []string{"street", "city", "state", "country", "postal_code", "updated_at"},
	Filterable: []string{"user_id"},
	Fields: func(a *model.Address) []interface{} {
		return []interface{}{&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.Country, &a.PostalCode, &a.CreatedAt, &a.UpdatedAt}
	},
}

var EducationTable = Table[model.UserEducation]{
	Name: "user_educations",
	Columns: []string{
		"id", "user_id", "school", "degree", "field_of_study", "start_year", "end_year", "description",
		"created_at", "updated_at",
	},
	Insertable: []string{"user_id", "school", "degree", "field_of_study", "start_year", "end_year", "description"},
	Mutable:    []string{"school", "degree", "field_of_study", "start_year", "end_year", "description", "updated_at"},
	Filterable: []string{"user_id"},
	OrderBy:    "start_year DESC",
	Fields: func(e *model.UserEducation) []interface{} {
		return []interface{}{
			&e.ID, &e.UserID, &e.School, &e.Degree, &e.FieldOfStudy, &e.StartYear, &e.EndYear, &e.Description,
			&e.CreatedAt, &e.UpdatedAt,
		}
	},
}

var ExperienceTable = Table[model.UserExperience]{
	Name: "user_experiences",
	Columns: []string{
		"id", "user_id", "company", "position", "city", "state", "country", "start_year", "end_year", "description",
		"created_at", "updated_at",
	},
	Insertable: []string{"user_id", "company", "position", "city", "state", "country", "start_year", "end_year", "description"},
	Mutable: []string{
		"company", "position", "city", "state", "country", "start_year", "end_year", "description", "updated_at",
	},
	Filterable: []string{"user_id"},
	OrderBy:    "start_year DESC",
	Fields: func(e *model.UserExperience) []interface{} {
		return []interface{}{
			&e.ID, &e.UserID, &e.Company, &e.Position, &e.City, &e.State, &e.Country, &e.StartYear, &e.EndYear,
			&e.Description, &e.CreatedAt, &e.UpdatedAt,
		}
	},
}
